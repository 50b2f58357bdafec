package trafficlight

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/models"
	"github.com/claude/paceplan/internal/plan"
)

const fiveMiles = 8046.72

func day(distance, pace string) *models.Day {
	return &models.Day{Exercise: "Tempo run", TargetDistance: distance, TargetPace: pace}
}

func activity(meters float64, moving int) *models.Activity {
	return &models.Activity{SportType: "Run", DistanceMeters: meters, MovingTimeSeconds: moving, ElapsedTimeSeconds: moving}
}

// TestClassifyMissingInputs verifies absent inputs in either position yield UNKNOWN.
func TestClassifyMissingInputs(t *testing.T) {
	if got := Classify(nil, activity(fiveMiles, 2400)); got != models.StatusUnknown {
		t.Errorf("Classify(nil, act) = %s, want UNKNOWN", got)
	}
	if got := Classify(day("5 mi", "8:00"), nil); got != models.StatusUnknown {
		t.Errorf("Classify(day, nil) = %s, want UNKNOWN", got)
	}
	if got := Classify(nil, nil); got != models.StatusUnknown {
		t.Errorf("Classify(nil, nil) = %s, want UNKNOWN", got)
	}
}

// TestClassifySingleTarget covers the single-valued pace rules and the distance floor.
func TestClassifySingleTarget(t *testing.T) {
	tests := []struct {
		name string
		day  *models.Day
		act  *models.Activity
		want models.Status
	}{
		{"on target", day("5 mi", "8:00"), activity(fiveMiles, 2400), models.StatusGreen},
		{"faster than target", day("5 mi", "8:00"), activity(fiveMiles, 2300), models.StatusGreen},
		{"excess distance stays green", day("5 mi", "8:00"), activity(fiveMiles*1.05, 2400), models.StatusGreen},
		{"far excess distance stays green", day("5 mi", "8:00"), activity(fiveMiles*2, 4800), models.StatusGreen},
		{"distance floor breach", day("5 mi", "8:00"), activity(4828.03, 2400), models.StatusRed},
		{"just above floor", day("5 mi", "8:00"), activity(fiveMiles*0.91, 2184), models.StatusGreen},
		{"within yellow tolerance", day("5 mi", "8:00"), activity(fiveMiles, 2475), models.StatusYellow},
		{"beyond yellow tolerance", day("5 mi", "8:00"), activity(fiveMiles, 2480), models.StatusRed},
		{"km target", day("10 km", "5:00"), activity(10000, 3000), models.StatusGreen},
		{"missing distance", day("", "8:00"), activity(fiveMiles, 2400), models.StatusUnknown},
		{"unparseable distance", day("far", "8:00"), activity(fiveMiles, 2400), models.StatusUnknown},
		{"zero distance", day("0 mi", "8:00"), activity(fiveMiles, 2400), models.StatusUnknown},
		{"missing pace", day("5 mi", ""), activity(fiveMiles, 2400), models.StatusUnknown},
		{"unparseable pace", day("5 mi", "easy"), activity(fiveMiles, 2400), models.StatusUnknown},
		{"zero moving time", day("5 mi", "8:00"), activity(fiveMiles, 0), models.StatusUnknown},
		{"zero distance run", day("5 mi", "8:00"), activity(0, 2400), models.StatusUnknown},
		{"negative distance run", day("5 mi", "8:00"), activity(-5, 2400), models.StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.day, tt.act); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestClassifyRangeBoundary pins the range-tolerance policy: matching the fast
// end exactly is YELLOW, one second faster is GREEN.
func TestClassifyRangeBoundary(t *testing.T) {
	d := day("5 mi", "8:30 - 8:00")
	tests := []struct {
		name string
		pace int // seconds per mile
		want models.Status
	}{
		{"faster than range", 470, models.StatusGreen},
		{"one second faster than fast end", 479, models.StatusGreen},
		{"exactly fast end", 480, models.StatusYellow},
		{"inside range", 495, models.StatusYellow},
		{"exactly slow end", 510, models.StatusYellow},
		{"slow end plus tolerance", 525, models.StatusYellow},
		{"beyond tolerance", 526, models.StatusRed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(d, activity(fiveMiles, tt.pace*5)); got != tt.want {
				t.Errorf("Classify(pace %d) = %s, want %s", tt.pace, got, tt.want)
			}
		})
	}
}

// TestClassifyRangeMarginConfigurable verifies a zero margin makes the fast end GREEN.
func TestClassifyRangeMarginConfigurable(t *testing.T) {
	th := DefaultThresholds()
	th.RangeGreenMarginSec = 0
	if got := th.Classify(day("5 mi", "8:30 - 8:00"), activity(fiveMiles, 2400)); got != models.StatusGreen {
		t.Errorf("Classify with zero margin = %s, want GREEN", got)
	}
}

// TestNoDistanceCeiling verifies that no amount of extra distance downgrades a GREEN day.
func TestNoDistanceCeiling(t *testing.T) {
	d := day("5 mi", "8:00")
	for factor := 1.0; factor <= 4.0; factor += 0.25 {
		meters := fiveMiles * factor
		moving := int(480 * factor * 5)
		if got := Classify(d, activity(meters, moving)); got != models.StatusGreen {
			t.Errorf("Classify(distance x%.2f) = %s, want GREEN", factor, got)
		}
	}
}

// TestBestRunOn verifies the longest run on the same local date wins and
// other dates and sports are ignored.
func TestBestRunOn(t *testing.T) {
	acts := []models.Activity{
		{ID: "short", SportType: "Run", StartDate: "2024-01-02T06:00:00Z", MovingTimeSeconds: 1200},
		{ID: "long", SportType: "Run", StartDate: "2024-01-02T18:00:00Z", MovingTimeSeconds: 3000},
		{ID: "ride", SportType: "Ride", StartDate: "2024-01-02T10:00:00Z", MovingTimeSeconds: 9000},
		{ID: "other-day", SportType: "Run", StartDate: "2024-01-03T06:00:00Z", MovingTimeSeconds: 9000},
		{ID: "tie-shorter", Type: "Run", StartDate: "2024-01-04T06:00:00Z", MovingTimeSeconds: 1800, ElapsedTimeSeconds: 1900},
		{ID: "tie-longer", Type: "Run", StartDate: "2024-01-04T07:00:00Z", MovingTimeSeconds: 1800, ElapsedTimeSeconds: 2100},
	}

	if got := BestRunOn(acts, civil.Date{Year: 2024, Month: 1, Day: 2}, time.UTC); got == nil || got.ID != "long" {
		t.Errorf("BestRunOn(Jan 2) = %v, want long", got)
	}
	if got := BestRunOn(acts, civil.Date{Year: 2024, Month: 1, Day: 4}, time.UTC); got == nil || got.ID != "tie-longer" {
		t.Errorf("BestRunOn(Jan 4) = %v, want tie-longer", got)
	}
	if got := BestRunOn(acts, civil.Date{Year: 2024, Month: 1, Day: 5}, time.UTC); got != nil {
		t.Errorf("BestRunOn(Jan 5) = %v, want nil", got)
	}
}

// TestBestRunOnLocalDate verifies the local start time decides the date, not UTC.
func TestBestRunOnLocalDate(t *testing.T) {
	acts := []models.Activity{{
		ID: "late", SportType: "Run",
		StartDate:         "2024-01-03T02:00:00Z",
		StartDateLocal:    "2024-01-02T21:00:00Z",
		MovingTimeSeconds: 1800,
	}}
	if got := BestRunOn(acts, civil.Date{Year: 2024, Month: 1, Day: 2}, time.UTC); got == nil {
		t.Error("expected the run to match its local date")
	}
	if got := BestRunOn(acts, civil.Date{Year: 2024, Month: 1, Day: 3}, time.UTC); got != nil {
		t.Error("run should not match its UTC date")
	}
}

// TestClassifyPlan verifies statuses are keyed by date and days without runs are absent.
func TestClassifyPlan(t *testing.T) {
	days := make([]models.Day, models.DaysPerWeek)
	for i := range days {
		days[i] = models.Day{Exercise: "Easy", TargetDistance: "5 mi", TargetPace: "8:00"}
	}
	days[0] = models.Day{Exercise: "Rest", TargetDistance: "0 mi"}
	p := plan.ApplyDates(&models.Plan{Weeks: []models.Week{{Label: "11", Days: days}}}, civil.Date{Year: 2024, Month: 1, Day: 1})

	acts := []models.Activity{
		{SportType: "Run", StartDate: "2024-01-01T07:00:00Z", DistanceMeters: 3000, MovingTimeSeconds: 900},
		{SportType: "Run", StartDate: "2024-01-02T07:00:00Z", DistanceMeters: fiveMiles, MovingTimeSeconds: 2400},
		{SportType: "Run", StartDate: "2024-01-03T07:00:00Z", DistanceMeters: 4828.03, MovingTimeSeconds: 2400},
		{SportType: "Run", StartDate: "2023-12-31T07:00:00Z", DistanceMeters: fiveMiles, MovingTimeSeconds: 2400},
	}

	got := DefaultThresholds().ClassifyPlan(p, acts, time.UTC)
	want := models.StatusMap{
		{Year: 2024, Month: 1, Day: 1}: models.StatusUnknown,
		{Year: 2024, Month: 1, Day: 2}: models.StatusGreen,
		{Year: 2024, Month: 1, Day: 3}: models.StatusRed,
	}
	if len(got) != len(want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	for d, s := range want {
		if got[d] != s {
			t.Errorf("status[%s] = %s, want %s", d, got[d], s)
		}
	}
}
