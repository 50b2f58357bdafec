// Package performance builds the per-type, per-week, per-date metrics read model.
package performance

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/claude/paceplan/internal/load"
	"github.com/claude/paceplan/internal/models"
	"github.com/claude/paceplan/internal/pace"
	"github.com/claude/paceplan/internal/plan"
)

// Unplanned is the week label for sessions outside the dated plan.
const Unplanned = "unplanned"

type key struct {
	kind, week, date string
}

type accum struct {
	distance  float64
	moving    int
	elevation float64
	trimp     float64
	hrWeight  float64 // sum of avgHR * moving seconds over sessions with HR
	hrSeconds int
	maxHR     *float64
	sessions  int
}

// Build derives PerformanceData from scratch. dated may be nil or undated, in
// which case every session lands under Unplanned. Sessions without a
// parseable start date are skipped.
func Build(dated *models.Plan, activities []models.Activity, loc *time.Location, athlete load.Athlete) models.PerformanceData {
	labels := make(map[civil.Date]string)
	if dated != nil {
		for _, ref := range plan.DatedDays(dated) {
			labels[ref.Date] = dated.Weeks[ref.Week].Label
		}
	}

	acc := make(map[key]*accum)
	for i := range activities {
		a := &activities[i]
		d, ok := a.LocalDate(loc)
		if !ok {
			continue
		}
		week, ok := labels[d]
		if !ok {
			week = Unplanned
		}
		k := key{kind: a.Kind(), week: week, date: d.String()}
		m := acc[k]
		if m == nil {
			m = &accum{}
			acc[k] = m
		}
		m.add(a, athlete)
	}

	out := make(models.PerformanceData)
	for k, m := range acc {
		byWeek := out[k.kind]
		if byWeek == nil {
			byWeek = make(map[string]map[string]models.DayMetrics)
			out[k.kind] = byWeek
		}
		byDate := byWeek[k.week]
		if byDate == nil {
			byDate = make(map[string]models.DayMetrics)
			byWeek[k.week] = byDate
		}
		byDate[k.date] = m.metrics()
	}
	return out
}

func (m *accum) add(a *models.Activity, athlete load.Athlete) {
	m.sessions++
	m.distance += a.DistanceMeters
	m.moving += a.MovingTimeSeconds
	m.elevation += a.TotalElevationGain
	if a.AverageHeartRate != nil && a.MovingTimeSeconds > 0 {
		m.hrWeight += *a.AverageHeartRate * float64(a.MovingTimeSeconds)
		m.hrSeconds += a.MovingTimeSeconds
		m.trimp += load.SessionTRIMP(a.MovingTimeSeconds, *a.AverageHeartRate, athlete)
	}
	if a.MaxHeartRate != nil && (m.maxHR == nil || *a.MaxHeartRate > *m.maxHR) {
		v := *a.MaxHeartRate
		m.maxHR = &v
	}
}

func (m *accum) metrics() models.DayMetrics {
	dm := models.DayMetrics{
		Distance:          m.distance,
		Elevation:         m.elevation,
		MaxHeartRate:      m.maxHR,
		TRIMP:             m.trimp,
		Sessions:          m.sessions,
		MovingTimeSeconds: m.moving,
	}
	if m.distance > 0 && m.moving > 0 {
		dm.PaceSecondsPerMile = float64(m.moving) / (m.distance / pace.MetersPerMile)
	}
	if m.hrSeconds > 0 {
		hr := m.hrWeight / float64(m.hrSeconds)
		dm.HeartRate = &hr
	}
	return dm
}

// WeeklyTotals sums every activity type per week label. Plan weeks come
// first in calendar order, then any other labels alphabetically.
func WeeklyTotals(data models.PerformanceData) []models.WeekTotals {
	totals := make(map[string]*models.WeekTotals)
	for _, byWeek := range data {
		for week, byDate := range byWeek {
			t := totals[week]
			if t == nil {
				t = &models.WeekTotals{Week: week}
				totals[week] = t
			}
			for _, dm := range byDate {
				t.Distance += dm.Distance
				t.TRIMP += dm.TRIMP
				t.Sessions += dm.Sessions
			}
		}
	}

	out := make([]models.WeekTotals, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := plan.WeekOffset(out[i].Week)
		oj, jok := plan.WeekOffset(out[j].Week)
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return out[i].Week < out[j].Week
		}
	})
	return out
}
