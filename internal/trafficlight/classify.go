// Package trafficlight grades planned days against the sessions actually run.
package trafficlight

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/models"
	"github.com/claude/paceplan/internal/pace"
	"github.com/claude/paceplan/internal/plan"
)

// Thresholds are the tunable boundaries of the classifier.
type Thresholds struct {
	// DistanceFloor is the fraction of planned distance below which a day is RED.
	DistanceFloor float64
	// YellowToleranceSec is how many seconds per unit slower than the target
	// (or the slow end of a range) still counts as YELLOW.
	YellowToleranceSec int
	// RangeGreenMarginSec is how many seconds per unit faster than the fast end
	// of a range a session must be to count as GREEN. With the default of 1,
	// matching the fast end exactly is YELLOW.
	RangeGreenMarginSec int
}

// DefaultThresholds returns the classifier defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DistanceFloor:       0.90,
		YellowToleranceSec:  15,
		RangeGreenMarginSec: 1,
	}
}

// Classify grades one planned day against one activity with default thresholds.
func Classify(day *models.Day, act *models.Activity) models.Status {
	return DefaultThresholds().Classify(day, act)
}

// Classify grades one planned day against one activity. Missing or
// unparseable inputs yield StatusUnknown.
func (th Thresholds) Classify(day *models.Day, act *models.Activity) models.Status {
	if day == nil || act == nil {
		return models.StatusUnknown
	}
	dist, ok := pace.ParseDistance(day.TargetDistance)
	if !ok || dist.Value <= 0 {
		return models.StatusUnknown
	}
	target, ok := pace.ParseTarget(day.TargetPace)
	if !ok {
		return models.StatusUnknown
	}
	actual, ok := pace.SecondsPerUnit(act.DistanceMeters, act.MovingTimeSeconds, dist.Unit)
	if !ok {
		return models.StatusUnknown
	}

	if act.DistanceMeters < th.DistanceFloor*dist.Meters() {
		return models.StatusRed
	}

	green := target.Fast
	if target.Range {
		green = target.Fast - th.RangeGreenMarginSec
	}
	switch {
	case actual <= green:
		return models.StatusGreen
	case actual <= target.Slow+th.YellowToleranceSec:
		return models.StatusYellow
	default:
		return models.StatusRed
	}
}

// BestRunOn picks the run with the greatest moving time on the given local
// date. It returns nil when no run matches.
func BestRunOn(activities []models.Activity, date civil.Date, loc *time.Location) *models.Activity {
	return BestRuns(activities, loc)[date]
}

// BestRuns indexes the best run of every local date. Ties on moving time go
// to the longer elapsed time, then the longer distance, then the earlier entry.
func BestRuns(activities []models.Activity, loc *time.Location) map[civil.Date]*models.Activity {
	best := make(map[civil.Date]*models.Activity)
	for i := range activities {
		a := &activities[i]
		if !a.IsRun() {
			continue
		}
		d, ok := a.LocalDate(loc)
		if !ok {
			continue
		}
		if cur, ok := best[d]; !ok || longer(a, cur) {
			best[d] = a
		}
	}
	return best
}

func longer(a, b *models.Activity) bool {
	if a.MovingTimeSeconds != b.MovingTimeSeconds {
		return a.MovingTimeSeconds > b.MovingTimeSeconds
	}
	if a.ElapsedTimeSeconds != b.ElapsedTimeSeconds {
		return a.ElapsedTimeSeconds > b.ElapsedTimeSeconds
	}
	return a.DistanceMeters > b.DistanceMeters
}

// ClassifyPlan grades every dated day of p that has a run on its date.
// Days without a run get no entry.
func (th Thresholds) ClassifyPlan(p *models.Plan, activities []models.Activity, loc *time.Location) models.StatusMap {
	statuses := make(models.StatusMap)
	runs := BestRuns(activities, loc)
	for _, ref := range plan.DatedDays(p) {
		act := runs[ref.Date]
		if act == nil {
			continue
		}
		statuses[ref.Date] = th.Classify(&p.Weeks[ref.Week].Days[ref.Day], act)
	}
	return statuses
}
