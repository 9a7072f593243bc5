package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foodshare/pickup-api/internal/apperror"
	"github.com/foodshare/pickup-api/internal/model"
	"github.com/foodshare/pickup-api/internal/policy"
	"github.com/foodshare/pickup-api/internal/repository"
)

// OrganizationService exposes the public NGO directory and the admin
// approval step.
type OrganizationService struct {
	orgs   repository.OrganizationRepository
	logger *slog.Logger
}

func NewOrganizationService(orgs repository.OrganizationRepository, logger *slog.Logger) *OrganizationService {
	return &OrganizationService{orgs: orgs, logger: logger}
}

func (s *OrganizationService) List(ctx context.Context) ([]model.Organization, error) {
	orgs, err := s.orgs.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/organization: %w", err)
	}
	return orgs, nil
}

func (s *OrganizationService) Get(ctx context.Context, id int64) (*model.Organization, error) {
	org, err := s.orgs.GetOrganization(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("NGO not found")
		}
		return nil, fmt.Errorf("service/organization: %w", err)
	}
	return org, nil
}

// Approve marks an organization approved. Approving twice is allowed and
// changes nothing the second time.
func (s *OrganizationService) Approve(ctx context.Context, user *model.User, id int64) (*model.Organization, error) {
	if !policy.CanApproveOrganization(policy.NewActor(user, nil)) {
		return nil, apperror.Forbidden("Only admins can approve NGOs")
	}

	org, err := s.orgs.ApproveOrganization(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("NGO not found")
		}
		return nil, fmt.Errorf("service/organization: %w", err)
	}

	s.logger.Info("organization approved",
		slog.Int64("organizationID", id),
		slog.Int64("byUserID", user.ID),
	)
	return org, nil
}
