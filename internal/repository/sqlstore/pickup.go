package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/foodshare/pickup-api/internal/apperror"
	"github.com/foodshare/pickup-api/internal/model"
	"github.com/foodshare/pickup-api/internal/repository"
)

var _ repository.PickupRepository = (*DB)(nil)

const pickupColumns = `id, ngo_id, title, description, address, city, state, zip_code,
	food_items, quantity, pickup_time, pickup_end_time, destination, additional_notes,
	status, volunteer_id, distance, created_at`

// CreatePickup inserts a new pickup. Whatever the caller set, a new pickup
// starts pending with no volunteer.
func (db *DB) CreatePickup(ctx context.Context, p *model.Pickup) error {
	p.Status = model.StatusPending
	p.VolunteerID = nil
	p.CreatedAt = now()

	err := db.conn.QueryRowContext(ctx, db.rebind(
		`INSERT INTO pickups (ngo_id, title, description, address, city, state, zip_code,
			food_items, quantity, pickup_time, pickup_end_time, destination, additional_notes,
			status, volunteer_id, distance, created_at)
		 VALUES (`+placeholders(17)+`)
		 RETURNING id`),
		p.NGOID,
		p.Title,
		p.Description,
		p.Address,
		p.City,
		p.State,
		p.ZipCode,
		p.FoodItems,
		p.Quantity,
		toMillis(p.PickupTime),
		toMillis(p.PickupEndTime),
		p.Destination,
		nullString(p.AdditionalNotes),
		string(p.Status),
		nullInt64(p.VolunteerID),
		nullString(p.Distance),
		toMillis(p.CreatedAt),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("sqlstore: creating pickup for organization %d: %w", p.NGOID, err)
	}

	p.PickupTime = fromMillis(toMillis(p.PickupTime))
	p.PickupEndTime = fromMillis(toMillis(p.PickupEndTime))
	return nil
}

func (db *DB) GetPickup(ctx context.Context, id int64) (*model.Pickup, error) {
	p, err := scanPickup(db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT `+pickupColumns+` FROM pickups WHERE id = ?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("food pickup", id)
		}
		return nil, fmt.Errorf("sqlstore: getting pickup %d: %w", id, err)
	}
	return p, nil
}

// ListPickups returns the pickups matching every set field of filter,
// oldest first.
func (db *DB) ListPickups(ctx context.Context, filter repository.PickupFilter) ([]model.Pickup, error) {
	var (
		where []string
		args  []any
	)
	if filter.NGOID != nil {
		where = append(where, "ngo_id = ?")
		args = append(args, *filter.NGOID)
	}
	if filter.VolunteerID != nil {
		where = append(where, "volunteer_id = ?")
		args = append(args, *filter.VolunteerID)
	}
	if filter.AvailableAt != nil {
		where = append(where, "status = ?", "pickup_time > ?")
		args = append(args, string(model.StatusPending), toMillis(*filter.AvailableAt))
	}

	query := `SELECT ` + pickupColumns + ` FROM pickups`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing pickups: %w", err)
	}
	defer rows.Close()

	pickups := []model.Pickup{}
	for rows.Next() {
		p, err := scanPickup(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning pickup: %w", err)
		}
		pickups = append(pickups, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating pickups: %w", err)
	}

	return pickups, nil
}

// AssignPickup claims a pending pickup for a volunteer.
//
// COMPARE-AND-SET:
// The status check and the write are one statement, so the database decides
// the winner when several volunteers claim the same pickup at once. A miss
// (unknown id, or someone else got there first) is reported as not found.
func (db *DB) AssignPickup(ctx context.Context, id, volunteerID int64) (*model.Pickup, error) {
	res, err := db.conn.ExecContext(ctx, db.rebind(
		`UPDATE pickups SET status = ?, volunteer_id = ?
		 WHERE id = ? AND status = ?`),
		string(model.StatusAssigned), volunteerID, id, string(model.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: assigning pickup %d: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: assigning pickup %d: %w", id, err)
	}
	if n == 0 {
		return nil, apperror.NotFoundMessage("Food pickup not found or already assigned")
	}

	return db.GetPickup(ctx, id)
}

// SetPickupStatus moves a pickup from one status to another, guarded on the
// status the caller last saw. If the row changed in between, the write is
// refused with apperror.ErrInvalidTransition.
func (db *DB) SetPickupStatus(ctx context.Context, id int64, from, to model.PickupStatus) (*model.Pickup, error) {
	res, err := db.conn.ExecContext(ctx, db.rebind(
		`UPDATE pickups SET status = ? WHERE id = ? AND status = ?`),
		string(to), id, string(from))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: setting pickup %d status: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: setting pickup %d status: %w", id, err)
	}

	current, err := db.GetPickup(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperror.InvalidTransition(string(current.Status), string(to))
	}
	return current, nil
}

func scanPickup(row scanner) (*model.Pickup, error) {
	var (
		p                   model.Pickup
		status              string
		pickupTime, endTime int64
		createdAt           int64
		notes, distance     sql.NullString
		volunteerID         sql.NullInt64
	)

	err := row.Scan(
		&p.ID,
		&p.NGOID,
		&p.Title,
		&p.Description,
		&p.Address,
		&p.City,
		&p.State,
		&p.ZipCode,
		&p.FoodItems,
		&p.Quantity,
		&pickupTime,
		&endTime,
		&p.Destination,
		&notes,
		&status,
		&volunteerID,
		&distance,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	p.PickupTime = fromMillis(pickupTime)
	p.PickupEndTime = fromMillis(endTime)
	p.AdditionalNotes = stringFromNull(notes)
	p.Status = model.PickupStatus(status)
	p.VolunteerID = int64FromNull(volunteerID)
	p.Distance = stringFromNull(distance)
	p.CreatedAt = fromMillis(createdAt)

	return &p, nil
}
