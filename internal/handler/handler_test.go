package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/foodshare/pickup-api/internal/auth"
	"github.com/foodshare/pickup-api/internal/handler"
	"github.com/foodshare/pickup-api/internal/mail"
	"github.com/foodshare/pickup-api/internal/model"
	"github.com/foodshare/pickup-api/internal/repository/sqlstore"
	"github.com/foodshare/pickup-api/internal/service"
)

const testPassword = "correct-horse-battery"

// outbox records every email instead of sending it.
type outbox struct {
	mu   sync.Mutex
	msgs []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.msgs)
}

type testEnv struct {
	db     *sqlstore.DB
	mail   *outbox
	hasher *auth.PasswordService
	router http.Handler
}

// newTestEnv wires real services over an in-memory store and mounts the
// handlers the same way the server does.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: sqlstore.DialectSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateUp())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := auth.NewTokenService("handler-test-secret-0123456789")
	require.NoError(t, err)
	hasher := auth.NewPasswordServiceForTest(4)
	box := &outbox{}
	emails := mail.NewComposer("http://localhost:8080")

	authSvc := service.NewAuthService(
		service.AuthStores{Users: db, Accounts: db, Sessions: db},
		tokens, hasher, box, emails, service.DefaultSessionTTL, logger,
	)
	authH := handler.NewAuthHandler(authSvc, false, logger)
	pickupH := handler.NewPickupHandler(service.NewPickupService(db, db, db, box, emails, logger), logger)
	orgH := handler.NewOrganizationHandler(service.NewOrganizationService(db, logger), logger)
	statsH := handler.NewStatsHandler(service.NewStatsService(db))

	r := chi.NewRouter()
	r.Use(auth.LoadSession(authSvc, logger))
	r.Get("/healthz", handler.HandleHealth(db))
	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authH.HandleRegister)
		r.Post("/login", authH.HandleLogin)
		r.Post("/logout", authH.HandleLogout)
		r.Get("/verify-email", authH.HandleVerifyEmail)
		r.Post("/forgot-password", authH.HandleForgotPassword)
		r.Post("/reset-password", authH.HandleResetPassword)
		r.Get("/ngos", orgH.HandleList)
		r.Get("/ngos/{id}", orgH.HandleGet)
		r.Get("/stats", statsH.HandleStats)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/user", authH.HandleMe)
			r.Post("/admin/approve-ngo/{id}", orgH.HandleApprove)
			r.Route("/food-pickups", func(r chi.Router) {
				r.Get("/", pickupH.HandleList)
				r.Post("/", pickupH.HandleCreate)
				r.Get("/available", pickupH.HandleListAvailable)
				r.Get("/volunteer", pickupH.HandleListByVolunteer)
				r.Get("/ngo/{ngoId}", pickupH.HandleListByOrganization)
				r.Post("/{id}/assign", pickupH.HandleAssign)
				r.Post("/{id}/status", pickupH.HandleChangeStatus)
			})
		})
	})

	return &testEnv{db: db, mail: box, hasher: hasher, router: r}
}

var seq atomic.Int64

// createUser stores a verified account whose password is testPassword.
func (e *testEnv) createUser(t *testing.T, role model.Role) *model.User {
	t.Helper()
	hash, err := e.hasher.Hash(testPassword)
	require.NoError(t, err)
	n := seq.Add(1)
	u := &model.User{
		Email:        fmt.Sprintf("%s%d@example.org", role, n),
		PasswordHash: hash,
		Role:         role,
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User%d", n),
		Phone:        "555-0100",
		IsVerified:   true,
	}
	require.NoError(t, e.db.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) createOrg(t *testing.T) (*model.User, *model.Organization) {
	t.Helper()
	owner := e.createUser(t, model.RoleNGO)
	org := &model.Organization{UserID: owner.ID, OrganizationName: "Pantry " + owner.LastName}
	require.NoError(t, e.db.CreateOrganization(context.Background(), org))
	return owner, org
}

// login returns the session cookie for u.
func (e *testEnv) login(t *testing.T, u *model.User) *http.Cookie {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/login", map[string]string{"email": u.Email, "password": testPassword}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader = http.NoBody
	if body != nil {
		switch b := body.(type) {
		case string:
			buf = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			buf = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}

func pickupBody(ngoID int64, start time.Time) map[string]any {
	return map[string]any{
		"ngoId":         ngoID,
		"title":         "Bakery surplus",
		"description":   "Day-old bread",
		"address":       "1 Main St",
		"city":          "Springfield",
		"state":         "IL",
		"zipCode":       "62701",
		"foodItems":     "bread",
		"quantity":      "3 crates",
		"pickupTime":    start.Format(time.RFC3339),
		"pickupEndTime": start.Add(2 * time.Hour).Format(time.RFC3339),
		"destination":   "Eastside Shelter",
	}
}

// createPickup posts a pickup as the organization owner and returns it.
func (e *testEnv) createPickup(t *testing.T, ownerCookie *http.Cookie, ngoID int64) model.Pickup {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/food-pickups", pickupBody(ngoID, time.Now().Add(24*time.Hour)), ownerCookie)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[model.Pickup](t, rr)
}
