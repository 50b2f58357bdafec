// Package hae accepts Health Auto Export REST payloads and stores their
// workouts as activities.
package hae

import (
	"context"
	"log/slog"

	"github.com/claude/paceplan/internal/ingest"
	"github.com/claude/paceplan/internal/models"
)

// Provider converts HAE workouts and hands them to the activity ingest provider.
type Provider struct {
	ingest *ingest.Provider
	log    *slog.Logger
}

// NewProvider creates a new HAE ingest provider.
func NewProvider(p *ingest.Provider, log *slog.Logger) *Provider {
	return &Provider{ingest: p, log: log}
}

// Ingest converts every workout in payload and stores the valid ones.
// Workouts that cannot be converted are counted as rejected.
func (p *Provider) Ingest(ctx context.Context, payload *models.HAEPayload) (*ingest.Result, error) {
	workouts := payload.Data.Workouts
	acts := make([]models.Activity, 0, len(workouts))
	var reasons []string
	for i := range workouts {
		a, err := Convert(&workouts[i])
		if err != nil {
			p.log.Warn("skipping workout", "id", workouts[i].ID, "error", err)
			reasons = append(reasons, err.Error())
			continue
		}
		acts = append(acts, a)
	}

	result, err := p.ingest.IngestActivities(ctx, acts)
	if err != nil {
		return nil, err
	}
	result.ActivitiesReceived += len(reasons)
	result.ActivitiesRejected += len(reasons)
	result.RejectedReasons = append(reasons, result.RejectedReasons...)
	return result, nil
}
