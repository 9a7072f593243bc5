package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/foodshare/pickup-api/internal/apperror"
	"github.com/foodshare/pickup-api/internal/lifecycle"
	"github.com/foodshare/pickup-api/internal/mail"
	"github.com/foodshare/pickup-api/internal/model"
	"github.com/foodshare/pickup-api/internal/policy"
	"github.com/foodshare/pickup-api/internal/repository"
)

const MaxPickupTextLength = 2000

// PickupService runs the pickup lifecycle: creation, listing, assignment
// and status changes.
//
// EVERY MUTATION FOLLOWS THE SAME SHAPE:
//  1. validate the input
//  2. load what the rule needs (pickup, the caller's organization)
//  3. ask policy whether the caller may act
//  4. ask lifecycle whether the move exists
//  5. perform exactly one conditional write in the repository
//
// The conditional write is what keeps two volunteers from both claiming a
// pickup: steps 2–4 can be stale by the time step 5 runs, and the store
// re-checks the status in the same statement.
type PickupService struct {
	pickups repository.PickupRepository
	orgs    repository.OrganizationRepository
	users   repository.UserRepository
	mailer  mail.Sender
	emails  *mail.Composer
	logger  *slog.Logger

	// sanitizer strips markup from free-text fields. Pickups are shown to
	// every signed-in user, so nobody gets to post HTML.
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

func NewPickupService(
	pickups repository.PickupRepository,
	orgs repository.OrganizationRepository,
	users repository.UserRepository,
	mailer mail.Sender,
	emails *mail.Composer,
	logger *slog.Logger,
) *PickupService {
	return &PickupService{
		pickups:   pickups,
		orgs:      orgs,
		users:     users,
		mailer:    mailer,
		emails:    emails,
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

// CreatePickupInput is a new pickup as posted by an organization.
type CreatePickupInput struct {
	NGOID           int64
	Title           string
	Description     string
	Address         string
	City            string
	State           string
	ZipCode         string
	FoodItems       string
	Quantity        string
	PickupTime      time.Time
	PickupEndTime   time.Time
	Destination     string
	AdditionalNotes *string
	Distance        *string
}

// Create posts a pending pickup for in.NGOID.
//
// The organization must exist (400 otherwise, it is part of the input) and
// the caller must be an admin or the NGO that owns it.
func (s *PickupService) Create(ctx context.Context, user *model.User, in CreatePickupInput) (*model.Pickup, error) {
	p := &model.Pickup{
		NGOID:           in.NGOID,
		Title:           s.clean(in.Title),
		Description:     s.clean(in.Description),
		Address:         s.clean(in.Address),
		City:            s.clean(in.City),
		State:           s.clean(in.State),
		ZipCode:         s.clean(in.ZipCode),
		FoodItems:       s.clean(in.FoodItems),
		Quantity:        s.clean(in.Quantity),
		PickupTime:      in.PickupTime,
		PickupEndTime:   in.PickupEndTime,
		Destination:     s.clean(in.Destination),
		AdditionalNotes: s.cleanOptional(in.AdditionalNotes),
		Distance:        s.cleanOptional(in.Distance),
	}

	if details := validatePickup(p); len(details) > 0 {
		return nil, apperror.Invalid("Validation error", details)
	}

	if _, err := s.orgs.GetOrganization(ctx, in.NGOID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("ngoId", "Organization not found")
		}
		return nil, fmt.Errorf("service/pickup: loading organization: %w", err)
	}

	actor, err := s.actorFor(ctx, user)
	if err != nil {
		return nil, err
	}
	if !policy.CanCreatePickup(actor, in.NGOID) {
		return nil, apperror.Forbidden("Not authorized to create pickups for this organization")
	}

	if err := s.pickups.CreatePickup(ctx, p); err != nil {
		return nil, fmt.Errorf("service/pickup: %w", err)
	}

	s.logger.Info("pickup created",
		slog.Int64("pickupID", p.ID),
		slog.Int64("ngoID", p.NGOID),
		slog.Int64("byUserID", user.ID),
	)
	return p, nil
}

// validatePickup reports every problem at once so the form can highlight
// all of them.
func validatePickup(p *model.Pickup) []apperror.FieldError {
	var details []apperror.FieldError
	required := []struct {
		field string
		value string
	}{
		{"title", p.Title},
		{"description", p.Description},
		{"address", p.Address},
		{"city", p.City},
		{"state", p.State},
		{"zipCode", p.ZipCode},
		{"foodItems", p.FoodItems},
		{"quantity", p.Quantity},
		{"destination", p.Destination},
	}
	for _, r := range required {
		switch {
		case r.value == "":
			details = append(details, apperror.FieldError{Field: r.field, Message: "Required"})
		case len(r.value) > MaxPickupTextLength:
			details = append(details, apperror.FieldError{
				Field:   r.field,
				Message: fmt.Sprintf("Must be %d characters or less", MaxPickupTextLength),
			})
		}
	}

	if p.PickupTime.IsZero() {
		details = append(details, apperror.FieldError{Field: "pickupTime", Message: "Required"})
	}
	if p.PickupEndTime.IsZero() {
		details = append(details, apperror.FieldError{Field: "pickupEndTime", Message: "Required"})
	} else if p.PickupEndTime.Before(p.PickupTime) {
		details = append(details, apperror.FieldError{
			Field:   "pickupEndTime",
			Message: "Pickup end time must not be before the start time",
		})
	}
	return details
}

// clean strips all markup. bluemonday escapes what it keeps, so the result
// is unescaped again: "bread & rolls" must stay as typed.
func (s *PickupService) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(v)))
}

func (s *PickupService) cleanOptional(v *string) *string {
	if v == nil {
		return nil
	}
	c := s.clean(*v)
	if c == "" {
		return nil
	}
	return &c
}

// List returns every pickup.
func (s *PickupService) List(ctx context.Context) ([]model.Pickup, error) {
	return s.list(ctx, repository.PickupFilter{})
}

// ListAvailable returns pending pickups that have not started yet.
func (s *PickupService) ListAvailable(ctx context.Context) ([]model.Pickup, error) {
	now := s.now()
	return s.list(ctx, repository.PickupFilter{AvailableAt: &now})
}

func (s *PickupService) ListByOrganization(ctx context.Context, ngoID int64) ([]model.Pickup, error) {
	return s.list(ctx, repository.PickupFilter{NGOID: &ngoID})
}

// ListByVolunteer returns the pickups assigned to user, in any status.
func (s *PickupService) ListByVolunteer(ctx context.Context, user *model.User) ([]model.Pickup, error) {
	id := user.ID
	return s.list(ctx, repository.PickupFilter{VolunteerID: &id})
}

func (s *PickupService) list(ctx context.Context, filter repository.PickupFilter) ([]model.Pickup, error) {
	pickups, err := s.pickups.ListPickups(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/pickup: %w", err)
	}
	return pickups, nil
}

// Assign lets a volunteer claim a pending pickup.
//
// The role check happens before the store is touched. The claim itself is
// a compare-and-set on status, so when two volunteers race exactly one
// wins and the other gets "not found or already assigned".
//
// Notification emails are best-effort: the pickup is already assigned when
// they go out, and a mail outage must not make the volunteer retry.
func (s *PickupService) Assign(ctx context.Context, user *model.User, id int64) (*model.Pickup, error) {
	if !policy.CanAssignPickup(policy.NewActor(user, nil)) {
		return nil, apperror.Forbidden("Only volunteers can assign pickups")
	}

	p, err := s.pickups.AssignPickup(ctx, id, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("pickup assigned",
		slog.Int64("pickupID", p.ID),
		slog.Int64("volunteerID", user.ID),
	)

	s.notifyAssigned(ctx, user, p)
	return p, nil
}

func (s *PickupService) notifyAssigned(ctx context.Context, volunteer *model.User, p *model.Pickup) {
	warn := func(step string, err error) {
		s.logger.Warn("assignment notification failed",
			slog.String("step", step),
			slog.Int64("pickupID", p.ID),
			slog.String("error", err.Error()),
		)
	}

	if msg, err := s.emails.PickupConfirmation(volunteer, p); err != nil {
		warn("render volunteer email", err)
	} else if err := s.mailer.Send(ctx, msg); err != nil {
		warn("send volunteer email", err)
	}

	org, err := s.orgs.GetOrganization(ctx, p.NGOID)
	if err != nil {
		warn("load organization", err)
		return
	}
	owner, err := s.users.GetUserByID(ctx, org.UserID)
	if err != nil {
		warn("load organization owner", err)
		return
	}
	msg, err := s.emails.VolunteerAssigned(owner, volunteer, p)
	if err != nil {
		warn("render organization email", err)
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		warn("send organization email", err)
	}
}

// ChangeStatus moves a pickup to status on behalf of user.
//
// CHECK ORDER (each maps to its own HTTP status):
//  1. status is one of the four known values    → 400
//  2. the pickup exists                          → 404
//  3. the caller may act on it                   → 403
//  4. the transition exists                      → 409
//  5. guarded write; a concurrent change between 2 and 5 also yields 409
func (s *PickupService) ChangeStatus(ctx context.Context, user *model.User, id int64, status string) (*model.Pickup, error) {
	to, ok := model.ParsePickupStatus(status)
	if !ok {
		return nil, apperror.ValidationFailed("status", "Invalid status")
	}

	p, err := s.pickups.GetPickup(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("Food pickup not found")
		}
		return nil, fmt.Errorf("service/pickup: %w", err)
	}

	actor, err := s.actorFor(ctx, user)
	if err != nil {
		return nil, err
	}
	if !policy.CanChangePickupStatus(actor, p) {
		return nil, apperror.Forbidden("Not authorized to update this pickup")
	}

	if err := lifecycle.Validate(p.Status, to); err != nil {
		return nil, err
	}

	updated, err := s.pickups.SetPickupStatus(ctx, id, p.Status, to)
	if err != nil {
		return nil, err
	}

	s.logger.Info("pickup status changed",
		slog.Int64("pickupID", id),
		slog.String("from", string(p.Status)),
		slog.String("to", string(to)),
		slog.Int64("byUserID", user.ID),
	)
	return updated, nil
}

// actorFor loads the organization an NGO user owns, if any.
func (s *PickupService) actorFor(ctx context.Context, user *model.User) (policy.Actor, error) {
	if user.Role != model.RoleNGO {
		return policy.NewActor(user, nil), nil
	}
	org, err := s.orgs.GetOrganizationByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return policy.NewActor(user, nil), nil
		}
		return policy.Actor{}, fmt.Errorf("service/pickup: loading caller's organization: %w", err)
	}
	return policy.NewActor(user, org), nil
}
