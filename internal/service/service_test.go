package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foodshare/pickup-api/internal/auth"
	"github.com/foodshare/pickup-api/internal/mail"
	"github.com/foodshare/pickup-api/internal/model"
	"github.com/foodshare/pickup-api/internal/repository/sqlstore"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// Services are tested against a real in-memory sqlite store rather than
// hand-written repository fakes: the compare-and-set guarantees live in
// SQL, and a fake would only test itself.
func newTestStore(t *testing.T) *sqlstore.DB {
	t.Helper()
	db, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: sqlstore.DialectSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateUp())
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSender keeps every message instead of delivering it.
// Set err to simulate a mail outage.
type recordingSender struct {
	mu   sync.Mutex
	msgs []mail.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingSender) sent() []mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mail.Message(nil), r.msgs...)
}

func newTestAuthService(t *testing.T, db *sqlstore.DB, sender mail.Sender) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)

	// Cost 4 is bcrypt minimum, keeps tests fast
	ps := auth.NewPasswordServiceForTest(4)

	return NewAuthService(
		AuthStores{Users: db, Accounts: db, Sessions: db},
		ts, ps, sender,
		mail.NewComposer("http://localhost:8080"),
		DefaultSessionTTL,
		quietLogger(),
	)
}

func newTestPickupService(db *sqlstore.DB, sender mail.Sender) *PickupService {
	return NewPickupService(db, db, db, sender, mail.NewComposer("http://localhost:8080"), quietLogger())
}

var userSeq atomic.Int64

// createUser inserts a verified user directly, bypassing registration.
func createUser(t *testing.T, db *sqlstore.DB, role model.Role) *model.User {
	t.Helper()
	n := userSeq.Add(1)
	u := &model.User{
		Email:        fmt.Sprintf("%s%d@example.org", role, n),
		PasswordHash: "unused",
		Role:         role,
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User%d", n),
		Phone:        "555-0100",
		IsVerified:   true,
	}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

// createOrg inserts an NGO user and its organization.
func createOrg(t *testing.T, db *sqlstore.DB) (*model.User, *model.Organization) {
	t.Helper()
	owner := createUser(t, db, model.RoleNGO)
	org := &model.Organization{UserID: owner.ID, OrganizationName: "Food Bank " + owner.LastName}
	require.NoError(t, db.CreateOrganization(context.Background(), org))
	return owner, org
}

func pickupInput(ngoID int64, start time.Time) CreatePickupInput {
	return CreatePickupInput{
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
}

// requirePendingIffNoVolunteer checks the pickup invariant on a stored row.
func requirePendingIffNoVolunteer(t *testing.T, db *sqlstore.DB, id int64) {
	t.Helper()
	p, err := db.GetPickup(context.Background(), id)
	require.NoError(t, err)
	switch p.Status {
	case model.StatusPending:
		require.Nil(t, p.VolunteerID, "pending pickup must not have a volunteer")
	case model.StatusAssigned, model.StatusCompleted:
		require.NotNil(t, p.VolunteerID, "%s pickup must have a volunteer", p.Status)
	}
}
