package mcp

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/coach"
	"github.com/claude/paceplan/internal/models"
)

// DataSource abstracts the plan read model for MCP tools. Both *coach.Service
// (local) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	AdjustedPlan(ctx context.Context) (*models.Plan, error)
	Anchor(ctx context.Context) (civil.Date, bool, error)
	Statuses(ctx context.Context) (models.StatusMap, error)
	Performance(ctx context.Context) (models.PerformanceData, []models.WeekTotals, error)
	Activities(ctx context.Context, since time.Time) ([]models.Activity, error)
}

// Compile-time check: *coach.Service satisfies DataSource.
var _ DataSource = (*coach.Service)(nil)
