package mcp

import (
	"log/slog"
	"time"

	"github.com/claude/paceplan/internal/load"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Settings are the values the MCP handlers need besides the data source.
type Settings struct {
	Version string
	// Athlete supplies heart-rate defaults for the load estimators.
	Athlete load.Athlete
	// Location decides what "today" means for the this_week resource.
	Location *time.Location
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, cfg Settings, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("PacePlan", cfg.Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("PacePlan training plan server. Read the fatigue-adjusted running plan, per-day traffic-light statuses, weekly performance and training-load estimates."),
	)

	h := newHandlers(ds, cfg, log)

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetAdjustedPlan, Handler: h.getAdjustedPlan},
		server.ServerTool{Tool: toolGetDayStatuses, Handler: h.getDayStatuses},
		server.ServerTool{Tool: toolGetPerformance, Handler: h.getPerformance},
		server.ServerTool{Tool: toolGetActivities, Handler: h.getActivities},
		server.ServerTool{Tool: toolEstimateTRIMP, Handler: h.estimateTRIMP},
		server.ServerTool{Tool: toolEstimateVO2Max, Handler: h.estimateVO2Max},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resAnchor, Handler: h.anchor},
		server.ServerResource{Resource: resThisWeek, Handler: h.thisWeek},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds      DataSource
	athlete load.Athlete
	loc     *time.Location
	now     func() time.Time
	log     *slog.Logger
}

func newHandlers(ds DataSource, cfg Settings, log *slog.Logger) *handlers {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &handlers{ds: ds, athlete: cfg.Athlete, loc: loc, now: time.Now, log: log}
}

// --- Resource definitions ---

var resAnchor = mcp.NewResource(
	"paceplan://anchor",
	"Plan Anchor",
	mcp.WithResourceDescription("The Monday week 11 of the plan started on, or null before the first run"),
	mcp.WithMIMEType("application/json"),
)

var resThisWeek = mcp.NewResource(
	"paceplan://this_week",
	"This Week",
	mcp.WithResourceDescription("The adjusted plan week containing today, with each day's status where a run was recorded"),
	mcp.WithMIMEType("application/json"),
)
