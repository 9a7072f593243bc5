package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foodshare/pickup-api/internal/apperror"
	"github.com/foodshare/pickup-api/internal/model"
	"github.com/foodshare/pickup-api/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, password_hash, role, first_name, last_name, phone, is_verified,
	address, city, state, zip_code, country, availability,
	verification_token, reset_token, reset_token_expiry, created_at`

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts a new account and fills in its ID and CreatedAt.
// A duplicate email (in any letter case) yields apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	return db.insertUser(ctx, db.conn, user)
}

func (db *DB) insertUser(ctx context.Context, q querier, user *model.User) error {
	user.Email = NormalizeEmail(user.Email)
	user.CreatedAt = now()

	err := q.QueryRowContext(ctx, db.rebind(
		`INSERT INTO users (email, password_hash, role, first_name, last_name, phone, is_verified,
			address, city, state, zip_code, country, availability,
			verification_token, reset_token, reset_token_expiry, created_at)
		 VALUES (`+placeholders(17)+`)
		 RETURNING id`),
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.FirstName,
		user.LastName,
		user.Phone,
		user.IsVerified,
		nullString(user.Address),
		nullString(user.City),
		nullString(user.State),
		nullString(user.ZipCode),
		nullString(user.Country),
		nullString(user.Availability),
		nullString(user.VerificationToken),
		nullString(user.ResetToken),
		nullMillis(user.ResetTokenExpiry),
		toMillis(user.CreatedAt),
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "email "+user.Email)
		}
		return fmt.Errorf("sqlstore: inserting user %s: %w", user.Email, err)
	}

	return nil
}

// GetUserByID retrieves a user by ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlstore: getting user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail looks the address up case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = NormalizeEmail(email)
	u, err := scanUser(db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT `+userColumns+` FROM users WHERE email = ?`), email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("user not found with email " + email)
		}
		return nil, fmt.Errorf("sqlstore: getting user by email: %w", err)
	}
	return u, nil
}

func (db *DB) GetUserByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT `+userColumns+` FROM users WHERE verification_token = ?`), token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("no user holds this verification token")
		}
		return nil, fmt.Errorf("sqlstore: getting user by verification token: %w", err)
	}
	return u, nil
}

// GetUserByResetToken matches only tokens that are still valid at now.
func (db *DB) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT `+userColumns+` FROM users
		 WHERE reset_token = ? AND reset_token_expiry > ?`), token, toMillis(now)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("no user holds this reset token")
		}
		return nil, fmt.Errorf("sqlstore: getting user by reset token: %w", err)
	}
	return u, nil
}

// UpdateUser applies the non-nil fields of update and returns the stored
// result. Unknown ids yield apperror.ErrNotFound.
func (db *DB) UpdateUser(ctx context.Context, id int64, update model.UserUpdate) (*model.User, error) {
	var (
		sets []string
		args []any
	)
	if update.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *update.PasswordHash)
	}
	if update.IsVerified != nil {
		sets = append(sets, "is_verified = ?")
		args = append(args, *update.IsVerified)
	}
	if update.VerificationToken != nil {
		sets = append(sets, "verification_token = ?")
		args = append(args, nullString(*update.VerificationToken))
	}
	if update.ResetToken != nil {
		sets = append(sets, "reset_token = ?")
		args = append(args, nullString(*update.ResetToken))
	}
	if update.ResetTokenExpiry != nil {
		sets = append(sets, "reset_token_expiry = ?")
		args = append(args, nullMillis(*update.ResetTokenExpiry))
	}

	if len(sets) == 0 {
		return db.GetUserByID(ctx, id)
	}

	args = append(args, id)
	res, err := db.conn.ExecContext(ctx, db.rebind(
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: updating user %d: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: updating user %d: %w", id, err)
	}
	if n == 0 {
		return nil, apperror.NotFound("user", id)
	}

	return db.GetUserByID(ctx, id)
}

func scanUser(row scanner) (*model.User, error) {
	var (
		u           model.User
		role        string
		resetExpiry sql.NullInt64
		createdAt   int64

		address, city, state, zipCode, country sql.NullString
		availability, verifyToken, resetToken  sql.NullString
	)

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.FirstName,
		&u.LastName,
		&u.Phone,
		&u.IsVerified,
		&address,
		&city,
		&state,
		&zipCode,
		&country,
		&availability,
		&verifyToken,
		&resetToken,
		&resetExpiry,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	u.Role = model.Role(role)
	u.Address = stringFromNull(address)
	u.City = stringFromNull(city)
	u.State = stringFromNull(state)
	u.ZipCode = stringFromNull(zipCode)
	u.Country = stringFromNull(country)
	u.Availability = stringFromNull(availability)
	u.VerificationToken = stringFromNull(verifyToken)
	u.ResetToken = stringFromNull(resetToken)
	u.ResetTokenExpiry = timeFromNullMillis(resetExpiry)
	u.CreatedAt = fromMillis(createdAt)

	return &u, nil
}
