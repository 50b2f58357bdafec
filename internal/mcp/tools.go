package mcp

import (
	"context"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/load"
	"github.com/claude/paceplan/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// dateRange parses optional start/end dates. A zero bound is open.
func dateRange(startStr, endStr string) (civil.Date, civil.Date, error) {
	var start, end civil.Date
	var err error
	if startStr != "" {
		if start, err = civil.ParseDate(startStr); err != nil {
			return start, end, err
		}
	}
	if endStr != "" {
		if end, err = civil.ParseDate(endStr); err != nil {
			return start, end, err
		}
	}
	return start, end, nil
}

func inRange(d, start, end civil.Date) bool {
	if start.IsValid() && d.Before(start) {
		return false
	}
	if end.IsValid() && d.After(end) {
		return false
	}
	return true
}

// --- Tool definitions ---

var toolGetAdjustedPlan = mcp.NewTool("get_adjusted_plan",
	mcp.WithDescription("Retrieve the fatigue-adjusted training plan. Each day carries its exercise, target distance, target pace, calendar date and any adjustment note."),
	mcp.WithString("week", mcp.Description("Only return this week label (e.g. '11', '3', 'Race week').")),
)

var toolGetDayStatuses = mcp.NewTool("get_day_statuses",
	mcp.WithDescription("Traffic-light status (GREEN/YELLOW/RED/UNKNOWN) of every planned day that has a recorded run, in date order."),
	mcp.WithString("start", mcp.Description("First date to include (YYYY-MM-DD).")),
	mcp.WithString("end", mcp.Description("Last date to include (YYYY-MM-DD).")),
)

var toolGetPerformance = mcp.NewTool("get_performance",
	mcp.WithDescription("Per-day performance metrics (distance, pace, heart rate, elevation, TRIMP) grouped by activity type and plan week, plus weekly totals."),
	mcp.WithString("type", mcp.Description("Only return this activity type (e.g. 'Run', 'Ride').")),
	mcp.WithString("week", mcp.Description("Only return this week label, or 'unplanned'.")),
)

var toolGetActivities = mcp.NewTool("get_activities",
	mcp.WithDescription("List stored activities with distance, moving time, heart rate and splits."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 14 days ago.")),
	mcp.WithString("type", mcp.Description("Filter by activity type (e.g. 'Run').")),
)

var toolEstimateTRIMP = mcp.NewTool("estimate_trimp",
	mcp.WithDescription("Banister training impulse for one session. Heart-rate bounds and sex default to the configured athlete."),
	mcp.WithNumber("duration_min", mcp.Required(), mcp.Description("Session duration in minutes")),
	mcp.WithNumber("avg_hr", mcp.Required(), mcp.Description("Average heart rate in bpm")),
	mcp.WithNumber("resting_hr", mcp.Description("Resting heart rate in bpm")),
	mcp.WithNumber("max_hr", mcp.Description("Maximum heart rate in bpm")),
	mcp.WithString("sex", mcp.Description("Coefficient set to use."), mcp.Enum("male", "female")),
)

var toolEstimateVO2Max = mcp.NewTool("estimate_vo2max",
	mcp.WithDescription("VO2max estimates from a race result (Daniels) and/or the heart-rate ratio (Uth). Heart-rate bounds default to the configured athlete."),
	mcp.WithNumber("distance_m", mcp.Description("Race distance in meters")),
	mcp.WithNumber("time_s", mcp.Description("Race time in seconds")),
	mcp.WithNumber("resting_hr", mcp.Description("Resting heart rate in bpm")),
	mcp.WithNumber("max_hr", mcp.Description("Maximum heart rate in bpm")),
)

// --- Tool handlers ---

func (h *handlers) getAdjustedPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := h.ds.AdjustedPlan(ctx)
	if err != nil {
		h.log.Error("mcp get_adjusted_plan", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	var out any = p
	if label := req.GetString("week", ""); label != "" {
		var found *models.Week
		for i := range p.Weeks {
			if strings.EqualFold(p.Weeks[i].Label, label) {
				found = &p.Weeks[i]
				break
			}
		}
		if found == nil {
			return mcp.NewToolResultError("no week labelled " + label), nil
		}
		out = found
	}

	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// dayStatus is one row of get_day_statuses.
type dayStatus struct {
	Date   civil.Date `json:"date"`
	Status string     `json:"status"`
}

func (h *handlers) getDayStatuses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := dateRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	statuses, err := h.ds.Statuses(ctx)
	if err != nil {
		h.log.Error("mcp get_day_statuses", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	rows := []dayStatus{}
	for d, st := range statuses {
		if inRange(d, start, end) {
			rows = append(rows, dayStatus{Date: d, Status: st.String()})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	result, err := mcp.NewToolResultJSON(rows)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getPerformance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, weekly, err := h.ds.Performance(ctx)
	if err != nil {
		h.log.Error("mcp get_performance", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	kind := req.GetString("type", "")
	week := req.GetString("week", "")
	filtered := models.PerformanceData{}
	for k, weeks := range data {
		if kind != "" && !strings.EqualFold(k, kind) {
			continue
		}
		for w, days := range weeks {
			if week != "" && !strings.EqualFold(w, week) {
				continue
			}
			if filtered[k] == nil {
				filtered[k] = map[string]map[string]models.DayMetrics{}
			}
			filtered[k][w] = days
		}
	}
	if week != "" {
		kept := weekly[:0:0]
		for _, wt := range weekly {
			if strings.EqualFold(wt.Week, week) {
				kept = append(kept, wt)
			}
		}
		weekly = kept
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"data":   filtered,
		"weekly": weekly,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getActivities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	since := h.now().AddDate(0, 0, -14)
	if s := req.GetString("start", ""); s != "" {
		t, err := parseFlexTime(s)
		if err != nil {
			return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
		}
		since = t
	}

	acts, err := h.ds.Activities(ctx, since)
	if err != nil {
		h.log.Error("mcp get_activities", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	out := []models.Activity{}
	kind := req.GetString("type", "")
	for _, a := range acts {
		if kind == "" || strings.EqualFold(a.Kind(), kind) {
			out = append(out, a)
		}
	}

	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) estimateTRIMP(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	duration, err := req.RequireFloat("duration_min")
	if err != nil {
		return mcp.NewToolResultError("duration_min parameter is required"), nil
	}
	avg, err := req.RequireFloat("avg_hr")
	if err != nil {
		return mcp.NewToolResultError("avg_hr parameter is required"), nil
	}
	resting := req.GetFloat("resting_hr", h.athlete.RestingHR)
	maxHR := req.GetFloat("max_hr", h.athlete.MaxHR)
	sex := load.Sex(req.GetString("sex", string(h.athlete.Sex)))

	result, err := mcp.NewToolResultJSON(map[string]any{
		"trimp":      load.TRIMP(duration, avg, resting, maxHR, sex != load.Female),
		"resting_hr": resting,
		"max_hr":     maxHR,
		"sex":        sex,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) estimateVO2Max(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := map[string]any{}

	dist := req.GetFloat("distance_m", 0)
	secs := req.GetFloat("time_s", 0)
	if dist > 0 && secs > 0 {
		out["vo2max_race"] = load.VO2MaxFromRace(dist, secs)
	}

	resting := req.GetFloat("resting_hr", h.athlete.RestingHR)
	maxHR := req.GetFloat("max_hr", h.athlete.MaxHR)
	if resting > 0 && maxHR > 0 {
		out["vo2max_hr"] = load.VO2MaxFromHR(resting, maxHR)
	}

	if len(out) == 0 {
		return mcp.NewToolResultError("provide distance_m and time_s, or resting_hr and max_hr"), nil
	}
	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
