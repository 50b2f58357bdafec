package plan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/models"
)

// weekOffsets maps a week label to its distance in weeks from the anchor Monday.
var weekOffsets = map[string]int{
	"11": 0, "10": 1, "9": 2, "8": 3, "7": 4, "6": 5,
	"5": 6, "4": 7, "3": 8, "2": 9, "1": 10,
	"Race week": 11,
}

var weekdayNames = [models.DaysPerWeek]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// WeekOffset returns the offset in weeks for a week label.
func WeekOffset(label string) (int, bool) {
	off, ok := weekOffsets[label]
	return off, ok
}

// AnchorStore persists the week-zero Monday. SetAnchorIfAbsent must be a
// first-write-wins compare-and-set that returns whichever anchor is stored.
type AnchorStore interface {
	Anchor(ctx context.Context) (civil.Date, bool, error)
	SetAnchorIfAbsent(ctx context.Context, anchor civil.Date) (civil.Date, error)
}

// EnsureAnchor returns the stored anchor, deriving and persisting it from the
// earliest run in history on first use. ok is false when nothing is stored
// and history has no qualifying run.
func EnsureAnchor(ctx context.Context, store AnchorStore, history []models.Activity) (civil.Date, bool, error) {
	anchor, ok, err := store.Anchor(ctx)
	if err != nil {
		return civil.Date{}, false, fmt.Errorf("reading anchor: %w", err)
	}
	if ok {
		return anchor, true, nil
	}

	derived, ok := DeriveAnchor(history)
	if !ok {
		return civil.Date{}, false, nil
	}
	stored, err := store.SetAnchorIfAbsent(ctx, derived)
	if err != nil {
		return civil.Date{}, false, fmt.Errorf("storing anchor: %w", err)
	}
	return stored, true, nil
}

// DeriveAnchor finds the earliest run's UTC calendar date and snaps it back
// to that week's Monday.
func DeriveAnchor(history []models.Activity) (civil.Date, bool) {
	var earliest civil.Date
	found := false
	for i := range history {
		a := &history[i]
		if !a.IsRun() {
			continue
		}
		d, ok := a.UTCDate()
		if !ok {
			continue
		}
		if !found || d.Before(earliest) {
			earliest = d
			found = true
		}
	}
	if !found {
		return civil.Date{}, false
	}
	return MondayOf(earliest), true
}

// MondayOf rolls d back to the Monday of its week. Sunday belongs to the
// week that started six days earlier.
func MondayOf(d civil.Date) civil.Date {
	wd := d.In(time.UTC).Weekday()
	if wd == time.Sunday {
		return d.AddDays(-6)
	}
	return d.AddDays(-int(wd - time.Monday))
}

// ApplyDates returns a copy of p with every day of a known week label stamped
// with its calendar date and weekday name. Unknown labels stay undated.
func ApplyDates(p *models.Plan, anchor civil.Date) *models.Plan {
	MustBeWellFormed(p)
	out := Clone(p)
	for i := range out.Weeks {
		w := &out.Weeks[i]
		off, ok := WeekOffset(w.Label)
		if !ok {
			continue
		}
		monday := anchor.AddDays(off * 7)
		for j := range w.Days {
			date := monday.AddDays(j)
			w.Days[j].Date = &date
			w.Days[j].Weekday = weekdayNames[j]
		}
	}
	return out
}

// DayRef locates a dated day inside a plan.
type DayRef struct {
	Week int
	Day  int
	Date civil.Date
}

// DatedDays lists every dated day of p in calendar order.
func DatedDays(p *models.Plan) []DayRef {
	var refs []DayRef
	for i, w := range p.Weeks {
		for j, d := range w.Days {
			if d.Date == nil {
				continue
			}
			refs = append(refs, DayRef{Week: i, Day: j, Date: *d.Date})
		}
	}
	sort.SliceStable(refs, func(a, b int) bool {
		return refs[a].Date.Before(refs[b].Date)
	})
	return refs
}

// WeekLabelFor returns the label of the week whose days include date.
func WeekLabelFor(p *models.Plan, date civil.Date) (string, bool) {
	for _, w := range p.Weeks {
		for _, d := range w.Days {
			if d.Date != nil && *d.Date == date {
				return w.Label, true
			}
		}
	}
	return "", false
}

// WeekContaining returns the week whose days include date.
func WeekContaining(p *models.Plan, date civil.Date) (*models.Week, bool) {
	for i, w := range p.Weeks {
		for _, d := range w.Days {
			if d.Date != nil && *d.Date == date {
				return &p.Weeks[i], true
			}
		}
	}
	return nil, false
}
