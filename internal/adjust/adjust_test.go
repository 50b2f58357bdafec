package adjust

import (
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/models"
	"github.com/claude/paceplan/internal/plan"
	"github.com/google/go-cmp/cmp"
)

var monday = civil.Date{Year: 2024, Month: 1, Day: 1}

// datedWeek builds one anchored week of easy 8:00 runs, then lets the caller
// override individual days before dates are stamped.
func datedWeek(t *testing.T, override func(days []models.Day)) *models.Plan {
	t.Helper()
	days := make([]models.Day, models.DaysPerWeek)
	for i := range days {
		days[i] = models.Day{Exercise: "Easy run", TargetDistance: "5 mi", TargetPace: "8:00"}
	}
	if override != nil {
		override(days)
	}
	return plan.ApplyDates(&models.Plan{Weeks: []models.Week{{Label: "11", Days: days}}}, monday)
}

func statusOn(offset int, s models.Status) models.StatusMap {
	return models.StatusMap{monday.AddDays(offset): s}
}

// TestSameDay verifies Phase A pace shifts and notes per status.
func TestSameDay(t *testing.T) {
	tests := []struct {
		status   models.Status
		wantPace string
		wantNote string
	}{
		{models.StatusRed, "8:10", NoteRed},
		{models.StatusYellow, "8:05", NoteYellow},
		{models.StatusGreen, "8:00", NoteGreen},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			out := Adjust(datedWeek(t, nil), statusOn(0, tt.status))
			d := out.Weeks[0].Days[0]
			if d.TargetPace != tt.wantPace {
				t.Errorf("pace = %q, want %q", d.TargetPace, tt.wantPace)
			}
			if !strings.Contains(d.AdjustmentNote, tt.wantNote) {
				t.Errorf("note = %q, want it to contain %q", d.AdjustmentNote, tt.wantNote)
			}
		})
	}
}

// TestSameDayRange verifies every token of a range moves by the same amount.
func TestSameDayRange(t *testing.T) {
	p := datedWeek(t, func(days []models.Day) { days[0].TargetPace = "8:30 - 8:00" })
	out := Adjust(p, statusOn(0, models.StatusRed))
	if got := out.Weeks[0].Days[0].TargetPace; got != "8:40 - 8:10" {
		t.Errorf("pace = %q, want 8:40 - 8:10", got)
	}
}

// TestUnknownStatusIgnored verifies UNKNOWN statuses trigger neither phase.
func TestUnknownStatusIgnored(t *testing.T) {
	p := datedWeek(t, nil)
	out := Adjust(p, statusOn(0, models.StatusUnknown))
	if diff := cmp.Diff(p, out); diff != "" {
		t.Errorf("plan changed for UNKNOWN status (-want +got):\n%s", diff)
	}
}

// TestCarryForwardRed verifies the +12/+7/+3 offsets on the three following days.
func TestCarryForwardRed(t *testing.T) {
	out := Adjust(datedWeek(t, nil), statusOn(0, models.StatusRed))
	want := []string{"8:10", "8:12", "8:07", "8:03", "8:00"}
	for i, w := range want {
		if got := out.Weeks[0].Days[i].TargetPace; got != w {
			t.Errorf("day %d pace = %q, want %q", i, got, w)
		}
	}
	if n := out.Weeks[0].Days[1].AdjustmentNote; !strings.Contains(n, "+12s") {
		t.Errorf("day 1 note = %q, want carry-forward magnitude", n)
	}
	if n := out.Weeks[0].Days[4].AdjustmentNote; n != "" {
		t.Errorf("day 4 note = %q, want empty", n)
	}
}

// TestCarryForwardGreen verifies the improvement offsets and that the zero
// day+3 offset leaves the day untouched.
func TestCarryForwardGreen(t *testing.T) {
	out := Adjust(datedWeek(t, nil), statusOn(0, models.StatusGreen))
	want := []string{"8:00", "7:56", "7:58", "8:00"}
	for i, w := range want {
		if got := out.Weeks[0].Days[i].TargetPace; got != w {
			t.Errorf("day %d pace = %q, want %q", i, got, w)
		}
	}
	if n := out.Weeks[0].Days[1].AdjustmentNote; !strings.Contains(n, "improvement") {
		t.Errorf("day 1 note = %q, want improvement note", n)
	}
	if n := out.Weeks[0].Days[3].AdjustmentNote; n != "" {
		t.Errorf("day 3 note = %q, want empty", n)
	}
}

// TestCarryForwardYellowAccumulates verifies offsets from consecutive statuses add up.
func TestCarryForwardYellowAccumulates(t *testing.T) {
	statuses := models.StatusMap{
		monday:            models.StatusYellow,
		monday.AddDays(1): models.StatusYellow,
	}
	out := Adjust(datedWeek(t, nil), statuses)
	// Day 1: +5 same-day, +6 from day 0.
	// Day 2: +3 from day 0, +6 from day 1.
	want := []string{"8:05", "8:11", "8:09", "8:05", "8:02"}
	for i, w := range want {
		if got := out.Weeks[0].Days[i].TargetPace; got != w {
			t.Errorf("day %d pace = %q, want %q", i, got, w)
		}
	}
}

// TestRecoveryDecay verifies a RED carry onto the day after a recovery run is
// scaled to round(12 x 0.60) = 7.
func TestRecoveryDecay(t *testing.T) {
	p := datedWeek(t, func(days []models.Day) {
		days[0] = models.Day{Exercise: "Recovery run", TargetDistance: "3 mi", TargetPace: "9:30"}
	})
	out := Adjust(p, statusOn(0, models.StatusRed))
	if got := out.Weeks[0].Days[1].TargetPace; got != "8:07" {
		t.Errorf("day 1 pace = %q, want 8:07", got)
	}
	if got := out.Weeks[0].Days[2].TargetPace; got != "8:07" {
		t.Errorf("day 2 pace = %q, want 8:07 (no decay)", got)
	}
}

// TestRecoveryDecayAfterRestDay verifies decay applies when a rest day sits
// between the status day and the target.
func TestRecoveryDecayAfterRestDay(t *testing.T) {
	p := datedWeek(t, func(days []models.Day) {
		days[1] = models.Day{Exercise: "Rest", TargetDistance: "0 mi"}
	})
	out := Adjust(p, statusOn(0, models.StatusRed))
	// Day 2 receives +7 scaled to round(4.2) = 4.
	if got := out.Weeks[0].Days[2].TargetPace; got != "8:04" {
		t.Errorf("day 2 pace = %q, want 8:04", got)
	}
}

// TestDecayKeepsSign verifies small offsets never decay to zero.
func TestDecayKeepsSign(t *testing.T) {
	tests := []struct{ in, want int }{
		{12, 7}, {7, 4}, {3, 2}, {1, 1}, {-1, -1}, {-4, -2}, {-2, -1}, {0, 0},
	}
	for _, tt := range tests {
		if got := decay(tt.in); got != tt.want {
			t.Errorf("decay(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestHardWorkoutDowngrade verifies an interval day receiving +12 is relabelled,
// noted and still shifted.
func TestHardWorkoutDowngrade(t *testing.T) {
	p := datedWeek(t, func(days []models.Day) {
		days[1] = models.Day{Exercise: "6x800m Intervals", TargetDistance: "6 mi", TargetPace: "7:00"}
	})
	out := Adjust(p, statusOn(0, models.StatusRed))
	d := out.Weeks[0].Days[1]
	if d.Exercise != AerobicExercise {
		t.Errorf("exercise = %q, want %q", d.Exercise, AerobicExercise)
	}
	if !strings.Contains(d.AdjustmentNote, "downgraded") || !strings.Contains(d.AdjustmentNote, "+12s") {
		t.Errorf("note = %q, want downgrade note with magnitude", d.AdjustmentNote)
	}
	if d.TargetPace != "7:12" {
		t.Errorf("pace = %q, want 7:12", d.TargetPace)
	}
}

// TestHardWorkoutBelowThreshold verifies offsets under 10s leave the workout in place.
func TestHardWorkoutBelowThreshold(t *testing.T) {
	p := datedWeek(t, func(days []models.Day) {
		days[2] = models.Day{Exercise: "Threshold run", TargetDistance: "6 mi", TargetPace: "7:00"}
	})
	out := Adjust(p, statusOn(0, models.StatusRed))
	d := out.Weeks[0].Days[2]
	if d.Exercise != "Threshold run" {
		t.Errorf("exercise = %q, want unchanged", d.Exercise)
	}
	if d.TargetPace != "7:07" {
		t.Errorf("pace = %q, want 7:07", d.TargetPace)
	}
}

// TestNoTrainingDaysNeverMutated verifies rest, cross, zero-distance, empty and
// unparseable-distance days are left alone by both phases for every status.
func TestNoTrainingDaysNeverMutated(t *testing.T) {
	noTraining := []models.Day{
		{Exercise: "Rest", TargetDistance: "0 mi"},
		{Exercise: "Cross train", TargetDistance: "5 mi", TargetPace: "8:00"},
		{Exercise: "Easy run", TargetDistance: "0 mi", TargetPace: "8:00"},
		{},
		{Exercise: "Long run", TargetDistance: "six-ish", TargetPace: "9:00"},
		{Exercise: "Easy run", TargetDistance: "6-8 mi", TargetPace: "9:00"},
		{Exercise: "Easy run", TargetPace: "9:00"},
	}
	for _, st := range []models.Status{models.StatusRed, models.StatusYellow, models.StatusGreen} {
		for _, nt := range noTraining {
			p := datedWeek(t, func(days []models.Day) {
				days[0] = nt
				days[1] = nt
				days[2] = nt
			})
			statuses := models.StatusMap{}
			for i := 0; i < models.DaysPerWeek; i++ {
				statuses[monday.AddDays(i)] = st
			}
			out := Adjust(p, statuses)
			for i := 0; i < 3; i++ {
				if diff := cmp.Diff(p.Weeks[0].Days[i], out.Weeks[0].Days[i]); diff != "" {
					t.Errorf("%s %q day %d mutated (-want +got):\n%s", st, nt.Exercise, i, diff)
				}
			}
		}
	}
}

// TestCarryForwardSkipsUnplannedSlots verifies a RED carry-forward leaves an
// empty slot and an unparseable-distance day untouched.
func TestCarryForwardSkipsUnplannedSlots(t *testing.T) {
	p := datedWeek(t, func(days []models.Day) {
		days[1] = models.Day{}
		days[2] = models.Day{Exercise: "Long run", TargetDistance: "six-ish", TargetPace: "9:00"}
	})
	out := Adjust(p, statusOn(0, models.StatusRed))
	if n := out.Weeks[0].Days[1].AdjustmentNote; n != "" {
		t.Errorf("empty slot note = %q, want empty", n)
	}
	d := out.Weeks[0].Days[2]
	if d.TargetPace != "9:00" || d.AdjustmentNote != "" {
		t.Errorf("unparseable-distance day = %q / %q, want 9:00 and no note", d.TargetPace, d.AdjustmentNote)
	}
	if got := out.Weeks[0].Days[3].TargetPace; got != "8:03" {
		t.Errorf("day 3 pace = %q, want 8:03", got)
	}
}

// TestAdjustDoesNotMutateInput verifies the input plan is deep-copied.
func TestAdjustDoesNotMutateInput(t *testing.T) {
	p := datedWeek(t, nil)
	before := plan.Clone(p)
	Adjust(p, statusOn(0, models.StatusRed))
	if diff := cmp.Diff(before, p); diff != "" {
		t.Errorf("input plan mutated (-want +got):\n%s", diff)
	}
}

// TestCarryForwardAcrossWeeks verifies offsets cross week boundaries by date.
func TestCarryForwardAcrossWeeks(t *testing.T) {
	days := func() []models.Day {
		d := make([]models.Day, models.DaysPerWeek)
		for i := range d {
			d[i] = models.Day{Exercise: "Easy run", TargetDistance: "5 mi", TargetPace: "8:00"}
		}
		return d
	}
	p := plan.ApplyDates(&models.Plan{Weeks: []models.Week{
		{Label: "11", Days: days()},
		{Label: "10", Days: days()},
	}}, monday)
	out := Adjust(p, statusOn(6, models.StatusRed))
	if got := out.Weeks[1].Days[0].TargetPace; got != "8:12" {
		t.Errorf("next week Monday pace = %q, want 8:12", got)
	}
}

// TestAppendNoteDedupes verifies a note already present is not repeated.
func TestAppendNoteDedupes(t *testing.T) {
	d := &models.Day{}
	AppendNote(d, NoteRed)
	AppendNote(d, NoteRed)
	AppendNote(d, "Extra.")
	if want := NoteRed + " Extra."; d.AdjustmentNote != want {
		t.Errorf("note = %q, want %q", d.AdjustmentNote, want)
	}
}

// TestIsHardWorkout verifies pattern matching is case-insensitive.
func TestIsHardWorkout(t *testing.T) {
	for ex, want := range map[string]bool{
		"VO2max 5x1000":         true,
		"Lactate threshold":     true,
		"Marathon Pace 8 miles": true,
		"Hill repeats":          true,
		"Easy run":              false,
		"Long run":              false,
	} {
		if got := IsHardWorkout(&models.Day{Exercise: ex}); got != want {
			t.Errorf("IsHardWorkout(%q) = %v, want %v", ex, got, want)
		}
	}
}
