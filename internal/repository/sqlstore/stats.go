package sqlstore

import (
	"context"
	"fmt"

	"github.com/foodshare/pickup-api/internal/model"
	"github.com/foodshare/pickup-api/internal/repository"
)

var _ repository.StatsRepository = (*DB)(nil)

func (db *DB) CountPickupsByStatus(ctx context.Context, status model.PickupStatus) (int64, error) {
	var n int64
	err := db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT COUNT(*) FROM pickups WHERE status = ?`), string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: counting %s pickups: %w", status, err)
	}
	return n, nil
}

// CountActiveVolunteers counts each volunteer once, however many assigned
// or completed pickups they hold.
func (db *DB) CountActiveVolunteers(ctx context.Context) (int64, error) {
	var n int64
	err := db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT COUNT(DISTINCT volunteer_id) FROM pickups
		 WHERE status IN (?, ?) AND volunteer_id IS NOT NULL`),
		string(model.StatusAssigned), string(model.StatusCompleted)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: counting active volunteers: %w", err)
	}
	return n, nil
}

func (db *DB) CountApprovedOrganizations(ctx context.Context) (int64, error) {
	var n int64
	err := db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT COUNT(*) FROM organizations WHERE is_approved = ?`), true).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: counting approved organizations: %w", err)
	}
	return n, nil
}
