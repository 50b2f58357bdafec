package models

// DayMetrics is the metric bag for one activity type on one date.
type DayMetrics struct {
	Distance           float64  `json:"distance"`
	PaceSecondsPerMile float64  `json:"pace_seconds_per_mile"`
	HeartRate          *float64 `json:"heart_rate,omitempty"`
	Elevation          float64  `json:"elevation"`
	MaxHeartRate       *float64 `json:"max_heart_rate,omitempty"`
	TRIMP              float64  `json:"trimp"`
	Sessions           int      `json:"sessions"`
	MovingTimeSeconds  int      `json:"moving_time"`
}

// PerformanceData maps activity type → week label → date key (YYYY-MM-DD) → metrics.
// It is rebuilt from scratch on every fetch cycle.
type PerformanceData map[string]map[string]map[string]DayMetrics

// WeekTotals summarises one week label of performance data.
type WeekTotals struct {
	Week     string  `json:"week"`
	Distance float64 `json:"distance"`
	TRIMP    float64 `json:"trimp"`
	Sessions int     `json:"sessions"`
}
