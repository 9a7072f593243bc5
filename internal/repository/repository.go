// Package repository declares the storage contracts the services depend on.
//
// Services only ever see these interfaces; the SQL implementation lives in
// repository/sqlstore and is injected at start-up. Tests substitute fakes or
// an in-memory sqlite store.
package repository

import (
	"context"
	"time"

	"github.com/foodshare/pickup-api/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (*model.User, error)
	// GetUserByResetToken only matches tokens whose expiry is after now.
	GetUserByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, update model.UserUpdate) (*model.User, error)
}

type OrganizationRepository interface {
	CreateOrganization(ctx context.Context, org *model.Organization) error
	GetOrganization(ctx context.Context, id int64) (*model.Organization, error)
	GetOrganizationByUserID(ctx context.Context, userID int64) (*model.Organization, error)
	ListOrganizations(ctx context.Context) ([]model.Organization, error)
	ApproveOrganization(ctx context.Context, id int64) (*model.Organization, error)
}

// AccountRepository creates a user and, for NGO accounts, its organization
// in a single transaction. org may be nil.
type AccountRepository interface {
	CreateAccount(ctx context.Context, user *model.User, org *model.Organization) error
}

// PickupFilter selects which pickups ListPickups returns. The zero value
// lists everything.
type PickupFilter struct {
	NGOID       *int64
	VolunteerID *int64
	// AvailableAt, when set, restricts the result to pending pickups whose
	// start time is after the given instant.
	AvailableAt *time.Time
}

type PickupRepository interface {
	CreatePickup(ctx context.Context, pickup *model.Pickup) error
	GetPickup(ctx context.Context, id int64) (*model.Pickup, error)
	ListPickups(ctx context.Context, filter PickupFilter) ([]model.Pickup, error)
	// AssignPickup moves a pending pickup to assigned in one conditional
	// write. It fails with apperror.ErrNotFound when the pickup does not
	// exist or is no longer pending.
	AssignPickup(ctx context.Context, id, volunteerID int64) (*model.Pickup, error)
	// SetPickupStatus writes to only if the stored status is still from.
	SetPickupStatus(ctx context.Context, id int64, from, to model.PickupStatus) (*model.Pickup, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type StatsRepository interface {
	CountPickupsByStatus(ctx context.Context, status model.PickupStatus) (int64, error)
	// CountActiveVolunteers counts distinct volunteers holding an assigned
	// or completed pickup.
	CountActiveVolunteers(ctx context.Context) (int64, error)
	CountApprovedOrganizations(ctx context.Context) (int64, error)
}
