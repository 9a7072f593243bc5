package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodshare/pickup-api/internal/apperror"
	"github.com/foodshare/pickup-api/internal/model"
)

func TestSessionLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, model.RoleVolunteer)

	s := &model.Session{ID: xid.New().String(), UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, db.CreateSession(ctx, s))

	got, err := db.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.False(t, got.Expired(time.Now()))

	require.NoError(t, db.DeleteSession(ctx, s.ID))
	_, err = db.GetSession(ctx, s.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.NoError(t, db.DeleteSession(ctx, s.ID), "deleting twice is harmless")
}

func TestDeleteExpiredSessions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, model.RoleVolunteer)
	now := time.Now()

	live := &model.Session{ID: xid.New().String(), UserID: u.ID, ExpiresAt: now.Add(time.Hour)}
	dead := &model.Session{ID: xid.New().String(), UserID: u.ID, ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, db.CreateSession(ctx, live))
	require.NoError(t, db.CreateSession(ctx, dead))

	n, err := db.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = db.GetSession(ctx, live.ID)
	assert.NoError(t, err)
	_, err = db.GetSession(ctx, dead.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
