package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/foodshare/pickup-api/internal/apperror"
	"github.com/foodshare/pickup-api/internal/model"
	"github.com/foodshare/pickup-api/internal/repository"
)

var _ repository.SessionRepository = (*DB)(nil)

// CreateSession stores a login. The caller chooses the ID.
func (db *DB) CreateSession(ctx context.Context, s *model.Session) error {
	s.CreatedAt = now()
	_, err := db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`),
		s.ID, s.UserID, toMillis(s.ExpiresAt), toMillis(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlstore: creating session for user %d: %w", s.UserID, err)
	}
	return nil
}

// GetSession returns the session even if it has expired; callers decide.
func (db *DB) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var (
		s                    model.Session
		expiresAt, createdAt int64
	)
	err := db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?`), id,
	).Scan(&s.ID, &s.UserID, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlstore: getting session: %w", err)
	}

	s.ExpiresAt = fromMillis(expiresAt)
	s.CreatedAt = fromMillis(createdAt)
	return &s, nil
}

// DeleteSession removes a session. Deleting an unknown id is not an error,
// so logging out twice is harmless.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM sessions WHERE id = ?`), id); err != nil {
		return fmt.Errorf("sqlstore: deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions prunes every session that expired at or before now
// and reports how many were removed.
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, db.rebind(
		`DELETE FROM sessions WHERE expires_at <= ?`), toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("sqlstore: pruning sessions: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: pruning sessions: %w", err)
	}
	return n, nil
}
