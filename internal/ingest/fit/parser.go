// Package fit decodes Garmin FIT activity files into activities.
package fit

import (
	"fmt"
	"io"
	"time"

	"github.com/claude/paceplan/internal/models"
	"github.com/google/uuid"
	"github.com/tormoder/fit"
)

// Source tags activities decoded from FIT files.
const Source = "fit"

const (
	invalidUint8  = 0xFF
	invalidUint16 = 0xFFFF
	invalidUint32 = 0xFFFFFFFF
)

// idNamespace keeps FIT-derived IDs apart from other UUIDv5 users.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("paceplan/fit"))

// Parse decodes a FIT file and returns one activity per session.
func Parse(r io.Reader) ([]models.Activity, error) {
	f, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding FIT: %w", err)
	}
	af, err := f.Activity()
	if err != nil {
		return nil, fmt.Errorf("reading activity: %w", err)
	}
	return FromActivityFile(af), nil
}

// FromActivityFile converts decoded sessions, attaching each lap as a split of
// the session it started in.
func FromActivityFile(af *fit.ActivityFile) []models.Activity {
	offset := localOffset(af.Activity)

	var out []models.Activity
	for _, s := range af.Sessions {
		if s == nil || s.StartTime.IsZero() {
			continue
		}
		start := s.StartTime.UTC()
		sport := sportName(s.Sport)
		a := models.Activity{
			ID:                 ActivityID(start, sport),
			Source:             Source,
			Name:               sport + " " + start.Format("2006-01-02"),
			SportType:          sport,
			Type:               sport,
			DistanceMeters:     scaled32(s.TotalDistance, 100),
			MovingTimeSeconds:  int(scaled32(s.TotalTimerTime, 1000)),
			ElapsedTimeSeconds: int(scaled32(s.TotalElapsedTime, 1000)),
			AverageHeartRate:   heartRate(s.AvgHeartRate),
			MaxHeartRate:       heartRate(s.MaxHeartRate),
			StartDate:          models.FormatProviderTime(start),
		}
		if s.TotalAscent != invalidUint16 {
			a.TotalElevationGain = float64(s.TotalAscent)
		}
		if offset != nil {
			a.StartDateLocal = start.Add(*offset).Format(models.ProviderTimeLayout)
		}
		end := start.Add(time.Duration(a.ElapsedTimeSeconds) * time.Second)
		for _, l := range af.Laps {
			if l == nil || l.StartTime.Before(start) || l.StartTime.After(end) {
				continue
			}
			a.Splits = append(a.Splits, models.Split{
				Distance:         scaled32(l.TotalDistance, 100),
				MovingTime:       int(scaled32(l.TotalTimerTime, 1000)),
				AverageHeartRate: heartRate(l.AvgHeartRate),
			})
		}
		out = append(out, a)
	}
	return out
}

// ActivityID derives a stable ID so re-importing a file never duplicates it.
func ActivityID(start time.Time, sport string) string {
	return uuid.NewSHA1(idNamespace, []byte(start.UTC().Format(time.RFC3339)+"|"+sport)).String()
}

// localOffset is the device's UTC offset, taken from the activity message.
// Offsets beyond any real time zone are treated as missing.
func localOffset(am *fit.ActivityMsg) *time.Duration {
	if am == nil || am.Timestamp.IsZero() || am.LocalTimestamp.IsZero() {
		return nil
	}
	d := am.LocalTimestamp.Sub(am.Timestamp)
	if d < -14*time.Hour || d > 14*time.Hour {
		return nil
	}
	return &d
}

func sportName(s fit.Sport) string {
	switch s {
	case fit.SportRunning:
		return "Run"
	case fit.SportCycling:
		return "Ride"
	case fit.SportSwimming:
		return "Swim"
	case fit.SportWalking:
		return "Walk"
	case fit.SportHiking:
		return "Hike"
	default:
		return "Workout"
	}
}

func scaled32(v uint32, scale float64) float64 {
	if v == invalidUint32 {
		return 0
	}
	return float64(v) / scale
}

func heartRate(v uint8) *float64 {
	if v == 0 || v == invalidUint8 {
		return nil
	}
	f := float64(v)
	return &f
}
