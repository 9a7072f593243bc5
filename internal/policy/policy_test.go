package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foodshare/pickup-api/internal/model"
)

func int64Ptr(v int64) *int64 { return &v }

var (
	admin     = Actor{UserID: 1, Role: model.RoleAdmin}
	volunteer = Actor{UserID: 2, Role: model.RoleVolunteer}
	stranger  = Actor{UserID: 3, Role: model.RoleVolunteer}
	ngo       = Actor{UserID: 4, Role: model.RoleNGO, OrganizationID: int64Ptr(10)}
	otherNGO  = Actor{UserID: 5, Role: model.RoleNGO, OrganizationID: int64Ptr(11)}
	orphanNGO = Actor{UserID: 6, Role: model.RoleNGO}
)

func TestCanChangePickupStatus(t *testing.T) {
	assigned := &model.Pickup{ID: 100, NGOID: 10, Status: model.StatusAssigned, VolunteerID: int64Ptr(2)}
	pending := &model.Pickup{ID: 101, NGOID: 10, Status: model.StatusPending}

	tests := []struct {
		name   string
		actor  Actor
		pickup *model.Pickup
		want   bool
	}{
		{"admin any pickup", admin, assigned, true},
		{"admin pending pickup", admin, pending, true},
		{"assigned volunteer", volunteer, assigned, true},
		{"other volunteer", stranger, assigned, false},
		{"volunteer on unassigned pickup", volunteer, pending, false},
		{"owning ngo", ngo, assigned, true},
		{"owning ngo pending", ngo, pending, true},
		{"other ngo", otherNGO, assigned, false},
		{"ngo without organization", orphanNGO, assigned, false},
		{"unknown role", Actor{UserID: 9, Role: "guest"}, assigned, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanChangePickupStatus(tt.actor, tt.pickup))
		})
	}
}

func TestCanAssignPickup(t *testing.T) {
	assert.True(t, CanAssignPickup(volunteer))
	assert.False(t, CanAssignPickup(admin))
	assert.False(t, CanAssignPickup(ngo))
}

func TestCanCreatePickup(t *testing.T) {
	assert.True(t, CanCreatePickup(admin, 42))
	assert.True(t, CanCreatePickup(ngo, 10))
	assert.False(t, CanCreatePickup(ngo, 11))
	assert.False(t, CanCreatePickup(orphanNGO, 10))
	assert.False(t, CanCreatePickup(volunteer, 10))
}

func TestCanApproveOrganization(t *testing.T) {
	assert.True(t, CanApproveOrganization(admin))
	assert.False(t, CanApproveOrganization(ngo))
	assert.False(t, CanApproveOrganization(volunteer))
}

func TestNewActor(t *testing.T) {
	u := &model.User{ID: 4, Role: model.RoleNGO}

	a := NewActor(u, &model.Organization{ID: 10, UserID: 4})
	if assert.NotNil(t, a.OrganizationID) {
		assert.Equal(t, int64(10), *a.OrganizationID)
	}

	foreign := NewActor(u, &model.Organization{ID: 11, UserID: 99})
	assert.Nil(t, foreign.OrganizationID, "an organization owned by someone else is ignored")

	v := NewActor(&model.User{ID: 2, Role: model.RoleVolunteer}, nil)
	assert.Nil(t, v.OrganizationID)
}
