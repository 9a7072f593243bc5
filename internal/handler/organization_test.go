package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodshare/pickup-api/internal/handler"
	"github.com/foodshare/pickup-api/internal/model"
)

func TestOrganizationHandler_Directory(t *testing.T) {
	env := newTestEnv(t)
	_, org := env.createOrg(t)

	rr := env.do(t, http.MethodGet, "/api/ngos", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	orgs := decode[[]model.Organization](t, rr)
	require.Len(t, orgs, 1)
	assert.False(t, orgs[0].IsApproved)

	rr = env.do(t, http.MethodGet, fmt.Sprintf("/api/ngos/%d", org.ID), nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, org.OrganizationName, decode[model.Organization](t, rr).OrganizationName)

	rr = env.do(t, http.MethodGet, "/api/ngos/9999", nil, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NGO not found", decode[handler.ErrorResponse](t, rr).Message)

	rr = env.do(t, http.MethodGet, "/api/ngos/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrganizationHandler_Approve(t *testing.T) {
	env := newTestEnv(t)
	owner, org := env.createOrg(t)
	path := fmt.Sprintf("/api/admin/approve-ngo/%d", org.ID)

	tests := []struct {
		name       string
		role       model.Role
		wantStatus int
	}{
		{"volunteer", model.RoleVolunteer, http.StatusForbidden},
		{"ngo", model.RoleNGO, http.StatusForbidden},
		{"admin", model.RoleAdmin, http.StatusOK},
		{"admin again is a no-op", model.RoleAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := owner
			if tt.role != model.RoleNGO {
				u = env.createUser(t, tt.role)
			}
			rr := env.do(t, http.MethodPost, path, nil, env.login(t, u))
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantStatus == http.StatusOK {
				assert.True(t, decode[model.Organization](t, rr).IsApproved)
			}
		})
	}

	t.Run("anonymous", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown organization", func(t *testing.T) {
		admin := env.createUser(t, model.RoleAdmin)
		rr := env.do(t, http.MethodPost, "/api/admin/approve-ngo/9999", nil, env.login(t, admin))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestStatsHandler(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"totalMealsSaved":0,"activeVolunteers":0,"partnerNGOs":0}`, rr.Body.String())

	owner, org := env.createOrg(t)
	ownerCookie := env.login(t, owner)
	vol := env.createUser(t, model.RoleVolunteer)
	volCookie := env.login(t, vol)

	for i := 0; i < 2; i++ {
		p := env.createPickup(t, ownerCookie, org.ID)
		rr = env.do(t, http.MethodPost, fmt.Sprintf("/api/food-pickups/%d/assign", p.ID), nil, volCookie)
		require.Equal(t, http.StatusOK, rr.Code)
		rr = env.do(t, http.MethodPost, fmt.Sprintf("/api/food-pickups/%d/status", p.ID), map[string]string{"status": "completed"}, volCookie)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	_, err := env.db.ApproveOrganization(context.Background(), org.ID)
	require.NoError(t, err)

	rr = env.do(t, http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"totalMealsSaved":50,"activeVolunteers":1,"partnerNGOs":1}`, rr.Body.String())
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		pinger     handler.Pinger
		wantStatus int
		wantBody   string
	}{
		{"database up", stubPinger{}, http.StatusOK, `{"status":"ok"}`},
		{"database down", stubPinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, `{"status":"unavailable"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.HandleHealth(tt.pinger)(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}

func TestHandleHealth_RealStore(t *testing.T) {
	env := newTestEnv(t)

	start := time.Now()
	rr := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Less(t, time.Since(start), 2*time.Second)
}
