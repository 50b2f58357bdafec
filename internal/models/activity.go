package models

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ProviderTimeLayout is the provider's start-time format: "2006-01-02T15:04:05Z".
// Local start times use the same layout with the wall clock in place of UTC.
const ProviderTimeLayout = "2006-01-02T15:04:05Z"

// Split is one segment of an activity (usually a mile or a lap).
type Split struct {
	Distance         float64  `json:"distance"`
	MovingTime       int      `json:"moving_time"`
	AverageHeartRate *float64 `json:"average_heartrate,omitempty"`
}

// Activity is one completed training session as supplied by the fitness provider
// or decoded from a FIT file.
type Activity struct {
	ID                 string   `json:"id"`
	Source             string   `json:"source,omitempty"`
	Name               string   `json:"name,omitempty"`
	SportType          string   `json:"sport_type"`
	Type               string   `json:"type"`
	DistanceMeters     float64  `json:"distance"`
	MovingTimeSeconds  int      `json:"moving_time"`
	ElapsedTimeSeconds int      `json:"elapsed_time"`
	AverageHeartRate   *float64 `json:"average_heartrate,omitempty"`
	MaxHeartRate       *float64 `json:"max_heartrate,omitempty"`
	TotalElevationGain float64  `json:"total_elevation_gain"`
	StartDate          string   `json:"start_date"`
	StartDateLocal     string   `json:"start_date_local,omitempty"`
	Splits             []Split  `json:"splits,omitempty"`
}

// ParseProviderTime parses a provider timestamp. RFC 3339 offsets are accepted
// as well so FIT-derived and provider records share one code path.
func ParseProviderTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(ProviderTimeLayout, s)
	if err == nil {
		return t, nil
	}
	t, err2 := time.Parse(time.RFC3339, s)
	if err2 == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("cannot parse provider time %q: %w", s, err)
}

// FormatProviderTime renders t in the provider's UTC layout.
func FormatProviderTime(t time.Time) string {
	return t.UTC().Format(ProviderTimeLayout)
}

// IsRun reports whether the sport type or type is "run", ignoring case.
func (a *Activity) IsRun() bool {
	return strings.EqualFold(a.SportType, "run") || strings.EqualFold(a.Type, "run")
}

// Kind returns the activity type used to group performance data,
// preferring the sport type.
func (a *Activity) Kind() string {
	if a.SportType != "" {
		return a.SportType
	}
	if a.Type != "" {
		return a.Type
	}
	return "Unknown"
}

// StartUTC returns the parsed UTC start time; ok is false when the
// start date is missing or malformed.
func (a *Activity) StartUTC() (time.Time, bool) {
	if a.StartDate == "" {
		return time.Time{}, false
	}
	t, err := ParseProviderTime(a.StartDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// UTCDate is the calendar date of the UTC start time.
func (a *Activity) UTCDate() (civil.Date, bool) {
	t, ok := a.StartUTC()
	if !ok {
		return civil.Date{}, false
	}
	return civil.DateOf(t), true
}

// LocalDate is the calendar date the athlete ran on. The local start time's
// wall clock wins; otherwise the UTC start is converted into loc.
func (a *Activity) LocalDate(loc *time.Location) (civil.Date, bool) {
	if a.StartDateLocal != "" {
		if t, err := time.Parse(ProviderTimeLayout, strings.TrimSpace(a.StartDateLocal)); err == nil {
			return civil.DateOf(t), true
		}
	}
	t, ok := a.StartUTC()
	if !ok {
		return civil.Date{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(t.In(loc)), true
}
