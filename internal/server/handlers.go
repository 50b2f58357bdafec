package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/claude/paceplan/internal/ingest"
	"github.com/claude/paceplan/internal/load"
	"github.com/claude/paceplan/internal/models"
)

// maxIngestBody bounds a pushed activity batch.
const maxIngestBody = 10 << 20

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// decodeActivities accepts either a bare JSON array or {"activities": [...]}.
func decodeActivities(r io.Reader) ([]models.Activity, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	var acts []models.Activity
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &acts)
		return acts, err
	}
	var wrapped struct {
		Activities []models.Activity `json:"activities"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Activities, nil
}

func (s *Server) handleIngestActivities(w http.ResponseWriter, r *http.Request) {
	acts, err := decodeActivities(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON: "+err.Error()))
		return
	}

	result, err := s.ingest.IngestActivities(r.Context(), acts)
	if err != nil {
		s.log.Error("ingest error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	s.recomputeAfterIngest(r.Context(), result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngestHAE(w http.ResponseWriter, r *http.Request) {
	var payload models.HAEPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON: "+err.Error()))
		return
	}

	result, err := s.hae.Ingest(r.Context(), &payload)
	if err != nil {
		s.log.Error("hae ingest error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	s.recomputeAfterIngest(r.Context(), result)
	writeJSON(w, http.StatusOK, result)
}

// recomputeAfterIngest rebuilds the adjusted plan when anything new was stored.
func (s *Server) recomputeAfterIngest(ctx context.Context, result *ingest.Result) {
	if result.ActivitiesInserted == 0 {
		return
	}
	if _, err := s.coach.Recompute(ctx); err != nil {
		s.log.Error("recompute after ingest failed", "error", err)
		result.Message = "stored, but plan recompute failed: " + err.Error()
		return
	}
	result.Message = "plan recomputed"
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.coach.Sync(r.Context(), "api")
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAdjustedPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.coach.AdjustedPlan(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coach.Template())
}

func (s *Server) handleStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.coach.Statuses(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleAnchor(w http.ResponseWriter, r *http.Request) {
	anchor, ok, err := s.coach.Anchor(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"anchor": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"anchor": anchor})
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	data, weekly, err := s.coach.Performance(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   data,
		"weekly": weekly,
	})
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	acts, err := s.coach.Activities(r.Context(), since)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	if kind := r.URL.Query().Get("type"); kind != "" {
		filtered := acts[:0]
		for _, a := range acts {
			if strings.EqualFold(a.Kind(), kind) || strings.EqualFold(a.Type, kind) {
				filtered = append(filtered, a)
			}
		}
		acts = filtered
	}
	if acts == nil {
		acts = []models.Activity{}
	}
	writeJSON(w, http.StatusOK, acts)
}

func (s *Server) handleTRIMP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	athlete := s.coach.Athlete()

	duration, err := floatParam(q.Get("duration_min"), 0)
	if err != nil || duration <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("duration_min must be a positive number"))
		return
	}
	avg, err := floatParam(q.Get("avg_hr"), 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid avg_hr"))
		return
	}
	resting, err1 := floatParam(q.Get("resting_hr"), athlete.RestingHR)
	maxHR, err2 := floatParam(q.Get("max_hr"), athlete.MaxHR)
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid resting_hr or max_hr"))
		return
	}
	sex := load.Sex(q.Get("sex"))
	if sex == "" {
		sex = athlete.Sex
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trimp": load.TRIMP(duration, avg, resting, maxHR, sex != load.Female),
	})
}

func (s *Server) handleVO2Max(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	athlete := s.coach.Athlete()
	out := map[string]any{}

	if q.Get("distance_m") != "" || q.Get("time_s") != "" {
		dist, err1 := floatParam(q.Get("distance_m"), 0)
		secs, err2 := floatParam(q.Get("time_s"), 0)
		if err1 != nil || err2 != nil || dist <= 0 || secs <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("distance_m and time_s must be positive numbers"))
			return
		}
		out["vo2max_race"] = load.VO2MaxFromRace(dist, secs)
	}

	resting, err1 := floatParam(q.Get("resting_hr"), athlete.RestingHR)
	maxHR, err2 := floatParam(q.Get("max_hr"), athlete.MaxHR)
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid resting_hr or max_hr"))
		return
	}
	if resting > 0 && maxHR > 0 {
		out["vo2max_hr"] = load.VO2MaxFromHR(resting, maxHR)
	}

	if len(out) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("provide distance_m and time_s, or resting_hr and max_hr"))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAthlete(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coach.Athlete())
}

func (s *Server) handleSyncLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.coach.SyncLogs(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if logs == nil {
		logs = []models.SyncLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func floatParam(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

// parseSince accepts RFC 3339 or a bare date; empty means the beginning of time.
func parseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}
