package service

import (
	"context"
	"fmt"

	"github.com/foodshare/pickup-api/internal/model"
	"github.com/foodshare/pickup-api/internal/repository"
)

// StatsService derives the landing-page counters. Nothing is cached: each
// call reads the current store.
type StatsService struct {
	stats repository.StatsRepository
}

func NewStatsService(stats repository.StatsRepository) *StatsService {
	return &StatsService{stats: stats}
}

func (s *StatsService) Get(ctx context.Context) (*model.Stats, error) {
	completed, err := s.stats.CountPickupsByStatus(ctx, model.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("service/stats: %w", err)
	}
	volunteers, err := s.stats.CountActiveVolunteers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/stats: %w", err)
	}
	partners, err := s.stats.CountApprovedOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/stats: %w", err)
	}

	return &model.Stats{
		TotalMealsSaved:  completed * model.MealsPerCompletedPickup,
		ActiveVolunteers: volunteers,
		PartnerNGOs:      partners,
	}, nil
}
