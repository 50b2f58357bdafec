package hae

import (
	"fmt"
	"math"
	"strings"

	"github.com/claude/paceplan/internal/models"
	"github.com/claude/paceplan/internal/pace"
	"github.com/google/uuid"
)

// Source tags activities converted from Health Auto Export workouts.
const Source = "hae"

// sportTypes maps Apple Health workout names onto provider sport types.
// Names not listed keep their own text with spaces removed.
var sportTypes = map[string]string{
	"running":         "Run",
	"outdoor run":     "Run",
	"indoor run":      "Run",
	"trail run":       "TrailRun",
	"walking":         "Walk",
	"outdoor walk":    "Walk",
	"hiking":          "Hike",
	"cycling":         "Ride",
	"outdoor cycling": "Ride",
	"indoor cycling":  "VirtualRide",
	"swimming":        "Swim",
}

// SportType maps a workout name to a sport type.
func SportType(name string) string {
	if st, ok := sportTypes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return st
	}
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "")
}

// meters converts a distance quantity. Unknown units fail.
func meters(q *models.HAEQuantity) (float64, error) {
	switch strings.ToLower(q.Units) {
	case "km":
		return q.Qty * pace.MetersPerKm, nil
	case "mi":
		return q.Qty * pace.MetersPerMile, nil
	case "m", "":
		return q.Qty, nil
	case "yd":
		return q.Qty * 0.9144, nil
	case "ft":
		return q.Qty * 0.3048, nil
	}
	return 0, fmt.Errorf("unknown distance unit %q", q.Units)
}

// Convert turns one workout into an activity. The workout's own offset
// supplies the local start time.
func Convert(w *models.HAEWorkout) (models.Activity, error) {
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return models.Activity{}, fmt.Errorf("invalid workout id %q: %w", w.ID, err)
	}
	if w.Start.IsZero() {
		return models.Activity{}, fmt.Errorf("workout %s: missing start", w.ID)
	}

	elapsed := int(math.Round(w.Duration))
	if span := int(w.End.Sub(w.Start.Time).Seconds()); span > elapsed {
		elapsed = span
	}
	a := models.Activity{
		ID:                 Source + "-" + id.String(),
		Source:             Source,
		Name:               w.Name,
		SportType:          SportType(w.Name),
		MovingTimeSeconds:  int(math.Round(w.Duration)),
		ElapsedTimeSeconds: elapsed,
		StartDate:          models.FormatProviderTime(w.Start.Time),
		StartDateLocal:     w.Start.Format(models.ProviderTimeLayout),
	}
	a.Type = a.SportType

	if w.Distance != nil {
		m, err := meters(w.Distance)
		if err != nil {
			return models.Activity{}, fmt.Errorf("workout %s: %w", w.ID, err)
		}
		a.DistanceMeters = m
	}
	if w.ElevationUp != nil {
		if m, err := meters(w.ElevationUp); err == nil {
			a.TotalElevationGain = m
		}
	}

	switch {
	case w.HeartRate != nil:
		a.AverageHeartRate = positive(w.HeartRate.Avg.Qty)
		a.MaxHeartRate = positive(w.HeartRate.Max.Qty)
	default:
		if w.AvgHR != nil {
			a.AverageHeartRate = positive(w.AvgHR.Qty)
		}
		if w.MaxHR != nil {
			a.MaxHeartRate = positive(w.MaxHR.Qty)
		}
	}
	return a, nil
}

func positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
