package sqlstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodshare/pickup-api/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" gives every test a fresh, migrated database that disappears
// when the pool is closed. The store pins sqlite to a single connection, so
// the whole test sees the same in-memory database.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Driver: DialectSQLite, DSN: ":memory:"})
	require.NoError(t, err, "opening test db")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.MigrateUp(), "migrating test db")
	return db
}

func strPtr(s string) *string { return &s }

var userSeq int

// createTestUser inserts a verified user with the given role.
func createTestUser(t *testing.T, db *DB, role model.Role) *model.User {
	t.Helper()
	userSeq++
	u := &model.User{
		Email:        fmt.Sprintf("user%d@example.org", userSeq),
		PasswordHash: "$2a$04$not-a-real-hash",
		Role:         role,
		FirstName:    "Test",
		LastName:     "User",
		Phone:        "555-0100",
		IsVerified:   true,
	}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

// createTestOrg inserts an NGO user and its organization.
func createTestOrg(t *testing.T, db *DB) *model.Organization {
	t.Helper()
	owner := createTestUser(t, db, model.RoleNGO)
	org := &model.Organization{UserID: owner.ID, OrganizationName: "Food Bank"}
	require.NoError(t, db.CreateOrganization(context.Background(), org))
	return org
}

// createTestPickup inserts a pending pickup starting at start.
func createTestPickup(t *testing.T, db *DB, ngoID int64, start time.Time) *model.Pickup {
	t.Helper()
	p := &model.Pickup{
		NGOID:         ngoID,
		Title:         "Bakery surplus",
		Description:   "Day-old bread",
		Address:       "1 Main St",
		City:          "Springfield",
		State:         "IL",
		ZipCode:       "62701",
		FoodItems:     "bread, rolls",
		Quantity:      "3 crates",
		PickupTime:    start,
		PickupEndTime: start.Add(2 * time.Hour),
		Destination:   "Eastside Shelter",
	}
	require.NoError(t, db.CreatePickup(context.Background(), p))
	return p
}

// =========================================================================
// PLUMBING TESTS
// =========================================================================

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"sqlite untouched", DialectSQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{"postgres numbered", DialectPostgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"postgres no params", DialectPostgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &DB{dialect: tt.dialect}
			assert.Equal(t, tt.want, db.rebind(tt.in))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql", DSN: "x"})
	require.Error(t, err)
}

func TestMigrateUp_IsIdempotent(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.MigrateUp(), "second MigrateUp should be a no-op")

	version, dirty, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestMigrateDown_DropsSchema(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.MigrateDown())

	_, err := db.ListOrganizations(context.Background())
	assert.Error(t, err, "tables should be gone after rolling back the only migration")
}

func TestMillisRoundTrip(t *testing.T) {
	in := time.Date(2026, 3, 14, 15, 9, 26, 535_000_000, time.FixedZone("X", 3600))
	got := fromMillis(toMillis(in))

	assert.True(t, got.Equal(in))
	assert.Equal(t, time.UTC, got.Location())
}
