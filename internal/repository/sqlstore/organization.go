package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/foodshare/pickup-api/internal/apperror"
	"github.com/foodshare/pickup-api/internal/model"
	"github.com/foodshare/pickup-api/internal/repository"
)

var (
	_ repository.OrganizationRepository = (*DB)(nil)
	_ repository.AccountRepository      = (*DB)(nil)
)

const organizationColumns = `id, user_id, organization_name, description, website, is_approved`

// CreateOrganization inserts an unapproved organization profile.
func (db *DB) CreateOrganization(ctx context.Context, org *model.Organization) error {
	return db.insertOrganization(ctx, db.conn, org)
}

func (db *DB) insertOrganization(ctx context.Context, q querier, org *model.Organization) error {
	org.IsApproved = false

	err := q.QueryRowContext(ctx, db.rebind(
		`INSERT INTO organizations (user_id, organization_name, description, website, is_approved)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`),
		org.UserID,
		org.OrganizationName,
		org.Description,
		org.Website,
		org.IsApproved,
	).Scan(&org.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("organization", fmt.Sprintf("user %d", org.UserID))
		}
		return fmt.Errorf("sqlstore: inserting organization for user %d: %w", org.UserID, err)
	}

	return nil
}

// CreateAccount inserts a user and, when org is non-nil, the organization
// it owns. Either both rows are written or neither is.
func (db *DB) CreateAccount(ctx context.Context, user *model.User, org *model.Organization) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: beginning account transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = db.insertUser(ctx, tx, user); err != nil {
		return err
	}
	if org != nil {
		org.UserID = user.ID
		if err = db.insertOrganization(ctx, tx, org); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing account for %s: %w", user.Email, err)
	}
	return nil
}

func (db *DB) GetOrganization(ctx context.Context, id int64) (*model.Organization, error) {
	org, err := scanOrganization(db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT `+organizationColumns+` FROM organizations WHERE id = ?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("organization", id)
		}
		return nil, fmt.Errorf("sqlstore: getting organization %d: %w", id, err)
	}
	return org, nil
}

func (db *DB) GetOrganizationByUserID(ctx context.Context, userID int64) (*model.Organization, error) {
	org, err := scanOrganization(db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT `+organizationColumns+` FROM organizations WHERE user_id = ?`), userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage(fmt.Sprintf("organization not found for user %d", userID))
		}
		return nil, fmt.Errorf("sqlstore: getting organization for user %d: %w", userID, err)
	}
	return org, nil
}

// ListOrganizations returns every organization, approved or not, oldest first.
func (db *DB) ListOrganizations(ctx context.Context) ([]model.Organization, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+organizationColumns+` FROM organizations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing organizations: %w", err)
	}
	defer rows.Close()

	orgs := []model.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning organization: %w", err)
		}
		orgs = append(orgs, *org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating organizations: %w", err)
	}

	return orgs, nil
}

// ApproveOrganization sets is_approved. Approving twice is harmless.
func (db *DB) ApproveOrganization(ctx context.Context, id int64) (*model.Organization, error) {
	res, err := db.conn.ExecContext(ctx, db.rebind(
		`UPDATE organizations SET is_approved = ? WHERE id = ?`), true, id)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: approving organization %d: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: approving organization %d: %w", id, err)
	}
	if n == 0 {
		return nil, apperror.NotFound("organization", id)
	}

	return db.GetOrganization(ctx, id)
}

func scanOrganization(row scanner) (*model.Organization, error) {
	var org model.Organization
	if err := row.Scan(
		&org.ID,
		&org.UserID,
		&org.OrganizationName,
		&org.Description,
		&org.Website,
		&org.IsApproved,
	); err != nil {
		return nil, err
	}
	return &org, nil
}
