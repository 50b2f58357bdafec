package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/coach"
	"github.com/claude/paceplan/internal/ingest"
	"github.com/claude/paceplan/internal/ingest/hae"
	"github.com/claude/paceplan/internal/load"
	"github.com/claude/paceplan/internal/models"
	"github.com/go-chi/chi/v5"
)

// Coach is the plan read model and sync trigger the API exposes.
// *coach.Service satisfies it.
type Coach interface {
	Sync(ctx context.Context, trigger string) (*coach.Result, error)
	Recompute(ctx context.Context) (*coach.Result, error)
	Template() *models.Plan
	AdjustedPlan(ctx context.Context) (*models.Plan, error)
	Anchor(ctx context.Context) (civil.Date, bool, error)
	Statuses(ctx context.Context) (models.StatusMap, error)
	Performance(ctx context.Context) (models.PerformanceData, []models.WeekTotals, error)
	Activities(ctx context.Context, since time.Time) ([]models.Activity, error)
	SyncLogs(ctx context.Context, limit int) ([]models.SyncLog, error)
	Athlete() load.Athlete
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	coach  Coach
	ingest *ingest.Provider
	hae    *hae.Provider
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(c Coach, ingestProvider *ingest.Provider, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		coach:  c,
		ingest: ingestProvider,
		hae:    hae.NewProvider(ingestProvider, log),
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Write endpoints (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/api/v1/activities", s.handleIngestActivities)
		r.Post("/api/v1/ingest/hae", s.handleIngestHAE)
		r.Post("/api/v1/sync", s.handleSync)
	})

	// Read endpoints (no auth, tsnet handles access)
	s.router.Get("/api/v1/plan", s.handleAdjustedPlan)
	s.router.Get("/api/v1/plan/template", s.handleTemplate)
	s.router.Get("/api/v1/statuses", s.handleStatuses)
	s.router.Get("/api/v1/anchor", s.handleAnchor)
	s.router.Get("/api/v1/performance", s.handlePerformance)
	s.router.Get("/api/v1/activities", s.handleActivities)
	s.router.Get("/api/v1/load/trimp", s.handleTRIMP)
	s.router.Get("/api/v1/load/vo2max", s.handleVO2Max)
	s.router.Get("/api/v1/athlete", s.handleAthlete)
	s.router.Get("/api/v1/sync/logs", s.handleSyncLogs)
}

// SetMCP mounts the streamable MCP handler at /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Handle("/mcp", h)
}
