package mcp

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/models"
	"github.com/claude/paceplan/internal/plan"
	"github.com/mark3labs/mcp-go/mcp"
)

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) anchor(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	anchor, ok, err := h.ds.Anchor(ctx)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"anchor": nil}
	if ok {
		body["anchor"] = anchor
	}
	return jsonContents(req.Params.URI, body)
}

// weekDay is one day of the this_week resource.
type weekDay struct {
	models.Day
	Status string `json:"status,omitempty"`
}

func (h *handlers) thisWeek(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	today := civil.DateOf(h.now().In(h.loc))

	p, err := h.ds.AdjustedPlan(ctx)
	if err != nil {
		return nil, err
	}
	week, ok := plan.WeekContaining(p, today)
	if !ok {
		return jsonContents(req.Params.URI, map[string]any{
			"today": today,
			"week":  nil,
		})
	}

	statuses, err := h.ds.Statuses(ctx)
	if err != nil {
		h.log.Warn("this_week: statuses failed", "error", err)
	}
	days := make([]weekDay, len(week.Days))
	for i, d := range week.Days {
		days[i] = weekDay{Day: d}
		if d.Date == nil {
			continue
		}
		if st, ok := statuses[*d.Date]; ok {
			days[i].Status = st.String()
		}
	}

	return jsonContents(req.Params.URI, map[string]any{
		"today": today,
		"week":  week.Label,
		"days":  days,
	})
}
