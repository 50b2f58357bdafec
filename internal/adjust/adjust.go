// Package adjust turns per-day traffic-light statuses into pace corrections:
// a same-day correction and a decaying carry-forward onto the next three days.
package adjust

import (
	"fmt"
	"math"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/models"
	"github.com/claude/paceplan/internal/pace"
	"github.com/claude/paceplan/internal/plan"
)

const (
	NoteRed    = "Adjusted for fatigue (+10s)."
	NoteYellow = "Slightly easier today (+5s)."
	NoteGreen  = "Met target."

	// AerobicExercise replaces a hard workout downgraded by carry-forward fatigue.
	AerobicExercise = "Easy aerobic run"

	// RecoveryDecay scales a carry-forward offset landing the day after a
	// rest, recovery or cross-training day.
	RecoveryDecay = 0.60

	// DowngradeThresholdSec is the smallest positive offset that downgrades a hard workout.
	DowngradeThresholdSec = 10
)

// sameDayShift is the Phase A pace change per status, in seconds per unit.
var sameDayShift = map[models.Status]int{
	models.StatusRed:    10,
	models.StatusYellow: 5,
	models.StatusGreen:  0,
}

var sameDayNote = map[models.Status]string{
	models.StatusRed:    NoteRed,
	models.StatusYellow: NoteYellow,
	models.StatusGreen:  NoteGreen,
}

// carryForward is the Phase B offset for day+1, day+2 and day+3.
var carryForward = map[models.Status][3]int{
	models.StatusRed:    {12, 7, 3},
	models.StatusYellow: {6, 3, 2},
	models.StatusGreen:  {-4, -2, 0},
}

var hardWorkoutPatterns = []string{
	"vo2", "lactate", "threshold", "marathon pace", "interval", "repeat",
}

// Adjust returns a corrected copy of p. Same-day corrections are applied
// first, then carry-forward offsets from every resolved date. p is never modified.
func Adjust(p *models.Plan, statuses models.StatusMap) *models.Plan {
	plan.MustBeWellFormed(p)
	out := plan.Clone(p)
	applySameDay(out, statuses)
	applyCarryForward(out, statuses)
	return out
}

func applySameDay(p *models.Plan, statuses models.StatusMap) {
	for i := range p.Weeks {
		for j := range p.Weeks[i].Days {
			d := &p.Weeks[i].Days[j]
			if d.Date == nil {
				continue
			}
			st, ok := statuses[*d.Date]
			if !ok || !st.Resolved() || IsNoTraining(d) {
				continue
			}
			if shift := sameDayShift[st]; shift != 0 {
				d.TargetPace = pace.Shift(d.TargetPace, shift)
			}
			AppendNote(d, sameDayNote[st])
		}
	}
}

func applyCarryForward(p *models.Plan, statuses models.StatusMap) {
	refs := plan.DatedDays(p)
	byDate := make(map[civil.Date]*models.Day, len(refs))
	for _, r := range refs {
		byDate[r.Date] = &p.Weeks[r.Week].Days[r.Day]
	}

	for _, r := range refs {
		st, ok := statuses[r.Date]
		if !ok || !st.Resolved() {
			continue
		}
		offsets := carryForward[st]
		for k, offset := range offsets {
			target := r.Date.AddDays(k + 1)
			d, ok := byDate[target]
			if !ok {
				continue
			}
			carry(d, byDate[target.AddDays(-1)], offset)
		}
	}
}

// carry applies one carry-forward offset to d; prev is the day before d, if planned.
func carry(d, prev *models.Day, offset int) {
	if IsNoTraining(d) {
		return
	}
	if prev != nil && IsRecovery(prev) {
		offset = decay(offset)
	}
	if offset == 0 {
		return
	}
	if offset >= DowngradeThresholdSec && IsHardWorkout(d) {
		d.Exercise = AerobicExercise
		AppendNote(d, fmt.Sprintf("Hard workout downgraded to aerobic run after recent fatigue (+%ds).", offset))
		d.TargetPace = pace.Shift(d.TargetPace, offset)
		return
	}
	d.TargetPace = pace.Shift(d.TargetPace, offset)
	if offset > 0 {
		AppendNote(d, fmt.Sprintf("Carry-forward fatigue (+%ds).", offset))
	} else {
		AppendNote(d, fmt.Sprintf("Carry-forward improvement (%ds).", offset))
	}
}

// decay scales offset by RecoveryDecay, keeping its sign when rounding
// would collapse it to zero.
func decay(offset int) int {
	if offset == 0 {
		return 0
	}
	scaled := int(math.Round(float64(offset) * RecoveryDecay))
	if scaled == 0 {
		if offset > 0 {
			return 1
		}
		return -1
	}
	return scaled
}

// IsNoTraining reports whether d is exempt from pace changes: rest or cross
// training, or a target distance that is empty, unparseable or not positive.
func IsNoTraining(d *models.Day) bool {
	ex := strings.ToLower(d.Exercise)
	if strings.Contains(ex, "rest") || strings.Contains(ex, "cross") {
		return true
	}
	dist, ok := pace.ParseDistance(d.TargetDistance)
	return !ok || dist.Value <= 0
}

// IsRecovery reports whether d is a rest, recovery or cross-training day.
func IsRecovery(d *models.Day) bool {
	ex := strings.ToLower(d.Exercise)
	return strings.Contains(ex, "rest") || strings.Contains(ex, "recovery") || strings.Contains(ex, "cross")
}

// IsHardWorkout reports whether the exercise text names a high-intensity session.
func IsHardWorkout(d *models.Day) bool {
	ex := strings.ToLower(d.Exercise)
	for _, p := range hardWorkoutPatterns {
		if strings.Contains(ex, p) {
			return true
		}
	}
	return false
}

// AppendNote appends note to the day's adjustment note unless it is already there.
func AppendNote(d *models.Day, note string) {
	if note == "" || strings.Contains(d.AdjustmentNote, note) {
		return
	}
	if d.AdjustmentNote == "" {
		d.AdjustmentNote = note
		return
	}
	d.AdjustmentNote += " " + note
}
