// Package ingest validates incoming activities and stores them.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/paceplan/internal/models"
)

// Result holds the outcome of an ingest operation.
type Result struct {
	ActivitiesReceived int      `json:"activities_received"`
	ActivitiesInserted int64    `json:"activities_inserted"`
	ActivitiesSkipped  int64    `json:"activities_skipped"`
	ActivitiesRejected int      `json:"activities_rejected"`
	RejectedReasons    []string `json:"rejected_reasons,omitempty"`

	Message string `json:"message,omitempty"`
}

// ActivityStore persists activities. UpsertActivities reports how many rows
// were inserted or changed.
type ActivityStore interface {
	UpsertActivities(ctx context.Context, acts []models.Activity) (int64, error)
}

// Provider stores validated activities.
type Provider struct {
	store ActivityStore
	log   *slog.Logger
}

// NewProvider creates a new activity ingest provider.
func NewProvider(store ActivityStore, log *slog.Logger) *Provider {
	return &Provider{store: store, log: log}
}

// IngestActivities validates acts and upserts the valid ones. Invalid
// activities are rejected individually; they never fail the batch.
func (p *Provider) IngestActivities(ctx context.Context, acts []models.Activity) (*Result, error) {
	result := &Result{ActivitiesReceived: len(acts)}

	valid := make([]models.Activity, 0, len(acts))
	for _, a := range acts {
		if reason := Validate(&a); reason != "" {
			result.ActivitiesRejected++
			result.RejectedReasons = append(result.RejectedReasons, reason)
			continue
		}
		valid = append(valid, a)
	}
	if result.ActivitiesRejected > 0 {
		p.log.Warn("rejected activities", "count", result.ActivitiesRejected)
	}
	if len(valid) == 0 {
		return result, nil
	}

	inserted, err := p.store.UpsertActivities(ctx, valid)
	if err != nil {
		return nil, fmt.Errorf("storing activities: %w", err)
	}
	result.ActivitiesInserted = inserted
	result.ActivitiesSkipped = int64(len(valid)) - inserted
	return result, nil
}

// Validate returns why a cannot be stored, or "" if it can.
func Validate(a *models.Activity) string {
	switch {
	case a.ID == "":
		return "missing id"
	case a.SportType == "" && a.Type == "":
		return fmt.Sprintf("%s: missing sport type", a.ID)
	case a.DistanceMeters < 0:
		return fmt.Sprintf("%s: negative distance", a.ID)
	case a.MovingTimeSeconds < 0 || a.ElapsedTimeSeconds < 0:
		return fmt.Sprintf("%s: negative duration", a.ID)
	}
	if _, ok := a.StartUTC(); !ok {
		return fmt.Sprintf("%s: unparseable start_date %q", a.ID, a.StartDate)
	}
	return ""
}
