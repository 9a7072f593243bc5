// Package policy answers "may this user do that?" for every mutating
// operation. Each rule lives here once; services call these predicates
// and turn a false into apperror.Forbidden.
package policy

import "github.com/foodshare/pickup-api/internal/model"

// Actor is the caller as the rules see it.
type Actor struct {
	UserID int64
	Role   model.Role
	// OrganizationID is set only for NGO users that own an organization.
	OrganizationID *int64
}

// NewActor builds an Actor from the session user and, for NGO users, the
// organization they own (nil otherwise).
func NewActor(u *model.User, org *model.Organization) Actor {
	a := Actor{UserID: u.ID, Role: u.Role}
	if u.Role == model.RoleNGO && org != nil && org.UserID == u.ID {
		id := org.ID
		a.OrganizationID = &id
	}
	return a
}

// ownsOrganization reports whether a is the NGO behind organization id.
func (a Actor) ownsOrganization(id int64) bool {
	return a.Role == model.RoleNGO && a.OrganizationID != nil && *a.OrganizationID == id
}

// CanChangePickupStatus is the single authorization rule for status changes:
//   - admins may change any pickup
//   - a volunteer may change only a pickup assigned to them
//   - an NGO may change only pickups its organization posted
func CanChangePickupStatus(a Actor, p *model.Pickup) bool {
	switch a.Role {
	case model.RoleAdmin:
		return true
	case model.RoleVolunteer:
		return p.VolunteerID != nil && *p.VolunteerID == a.UserID
	case model.RoleNGO:
		return a.ownsOrganization(p.NGOID)
	}
	return false
}

// CanAssignPickup: only volunteers claim pickups.
func CanAssignPickup(a Actor) bool {
	return a.Role == model.RoleVolunteer
}

// CanCreatePickup allows admins to post for any organization and NGOs to
// post for their own.
func CanCreatePickup(a Actor, ngoID int64) bool {
	return a.Role == model.RoleAdmin || a.ownsOrganization(ngoID)
}

// CanApproveOrganization: only admins approve NGOs.
func CanApproveOrganization(a Actor) bool {
	return a.Role == model.RoleAdmin
}
