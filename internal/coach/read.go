package coach

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/load"
	"github.com/claude/paceplan/internal/models"
	"github.com/claude/paceplan/internal/performance"
	"github.com/claude/paceplan/internal/plan"
)

// Template returns a copy of the undated plan template.
func (s *Service) Template() *models.Plan {
	return plan.Clone(s.opts.Template)
}

// Anchor returns the persisted anchor Monday, if any.
func (s *Service) Anchor(ctx context.Context) (civil.Date, bool, error) {
	return s.store.Anchor(ctx)
}

// AdjustedPlan returns the last persisted adjusted plan. Before the first
// sync it falls back to the dated template, or the bare template when no
// anchor exists yet.
func (s *Service) AdjustedPlan(ctx context.Context) (*models.Plan, error) {
	p, ok, err := s.store.AdjustedPlan(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return p, nil
	}
	anchor, ok, err := s.store.Anchor(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.Template(), nil
	}
	return plan.ApplyDates(s.opts.Template, anchor), nil
}

// ThisWeek returns the adjusted week containing date.
func (s *Service) ThisWeek(ctx context.Context, date civil.Date) (*models.Week, bool, error) {
	p, err := s.AdjustedPlan(ctx)
	if err != nil {
		return nil, false, err
	}
	w, ok := plan.WeekContaining(p, date)
	return w, ok, nil
}

// Today is the current date in the athlete's time zone.
func (s *Service) Today() civil.Date {
	return civil.DateOf(s.now().In(s.opts.Location))
}

// dated returns the template stamped with the stored anchor; ok is false before
// the anchor exists.
func (s *Service) dated(ctx context.Context) (*models.Plan, bool, error) {
	anchor, ok, err := s.store.Anchor(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	return plan.ApplyDates(s.opts.Template, anchor), true, nil
}

// Statuses grades every dated day that has a run. It is empty before the anchor exists.
func (s *Service) Statuses(ctx context.Context) (models.StatusMap, error) {
	dated, ok, err := s.dated(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return models.StatusMap{}, nil
	}
	acts, err := s.store.ListActivities(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}
	return s.opts.Thresholds.ClassifyPlan(dated, acts, s.opts.Location), nil
}

// Performance rebuilds the performance read model from all stored activities.
func (s *Service) Performance(ctx context.Context) (models.PerformanceData, []models.WeekTotals, error) {
	dated, _, err := s.dated(ctx)
	if err != nil {
		return nil, nil, err
	}
	acts, err := s.store.ListActivities(ctx, time.Time{})
	if err != nil {
		return nil, nil, fmt.Errorf("loading activities: %w", err)
	}
	data := performance.Build(dated, acts, s.opts.Location, s.opts.Athlete)
	return data, performance.WeeklyTotals(data), nil
}

// Activities returns stored activities started at or after since.
func (s *Service) Activities(ctx context.Context, since time.Time) ([]models.Activity, error) {
	return s.store.ListActivities(ctx, since)
}

// SyncLogs returns the most recent sync logs.
func (s *Service) SyncLogs(ctx context.Context, limit int) ([]models.SyncLog, error) {
	return s.store.QuerySyncLogs(ctx, limit)
}

// Athlete returns the configured athlete constants.
func (s *Service) Athlete() load.Athlete {
	return s.opts.Athlete
}
