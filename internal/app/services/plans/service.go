package plans

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/freetime-planner/freetime/internal/app/domain"
	"github.com/freetime-planner/freetime/internal/app/domain/plan"
	"github.com/freetime-planner/freetime/internal/app/metrics"
	"github.com/freetime-planner/freetime/internal/app/storage"
	"github.com/freetime-planner/freetime/pkg/logger"
)

// Service manages weekly plans.
type Service struct {
	store storage.PlanStore
	log   *logger.Logger
}

// New constructs a weekly plan service.
func New(store storage.PlanStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("plans")
	}
	return &Service{store: store, log: log}
}

// GetByUser returns the user's plan with the latest week start date.
func (s *Service) GetByUser(ctx context.Context, userID int64) (plan.WeeklyPlan, error) {
	return s.store.GetLatestPlanForUser(ctx, userID)
}

// ListByUser returns all of the user's plans ordered by week.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]plan.WeeklyPlan, error) {
	return s.store.ListPlansForUser(ctx, userID)
}

// Get fetches a plan by id.
func (s *Service) Get(ctx context.Context, id int64) (plan.WeeklyPlan, error) {
	return s.store.GetPlan(ctx, id)
}

// Create stores a plan for userID. A user has at most one plan per week.
func (s *Service) Create(ctx context.Context, userID int64, in plan.Input) (plan.WeeklyPlan, error) {
	if userID <= 0 {
		return plan.WeeklyPlan{}, domain.Invalid("user_id", "must be positive")
	}
	in, err := normalizeInput(in)
	if err != nil {
		return plan.WeeklyPlan{}, err
	}
	created, err := s.store.CreatePlan(ctx, userID, in)
	if err != nil {
		return plan.WeeklyPlan{}, err
	}
	metrics.RecordMutation("plan", "create")
	s.log.WithField("plan_id", created.ID).
		WithField("user_id", userID).
		WithField("week_start_date", created.WeekStartDate).
		Info("weekly plan created")
	return created, nil
}

// Update replaces the dates and idea list of an existing plan.
func (s *Service) Update(ctx context.Context, id int64, in plan.Input) (plan.WeeklyPlan, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return plan.WeeklyPlan{}, err
	}
	updated, err := s.store.UpdatePlan(ctx, id, in)
	if err != nil {
		return plan.WeeklyPlan{}, err
	}
	metrics.RecordMutation("plan", "update")
	s.log.WithField("plan_id", id).Info("weekly plan updated")
	return updated, nil
}

// Delete removes a plan and reports whether it existed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	if err := s.store.DeletePlan(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	metrics.RecordMutation("plan", "delete")
	s.log.WithField("plan_id", id).Info("weekly plan deleted")
	return true, nil
}

func normalizeInput(in plan.Input) (plan.Input, error) {
	in.WeekStartDate = strings.TrimSpace(in.WeekStartDate)
	in.WeekEndDate = strings.TrimSpace(in.WeekEndDate)

	start, err := time.Parse(plan.DateLayout, in.WeekStartDate)
	if err != nil {
		return plan.Input{}, domain.Invalid("week_start_date", "must be a YYYY-MM-DD date")
	}
	end, err := time.Parse(plan.DateLayout, in.WeekEndDate)
	if err != nil {
		return plan.Input{}, domain.Invalid("week_end_date", "must be a YYYY-MM-DD date")
	}
	if end.Before(start) {
		return plan.Input{}, domain.Invalid("week_end_date", "must not precede week_start_date")
	}
	if in.IdeaIDs == nil {
		in.IdeaIDs = []int64{}
	}
	return in, nil
}
