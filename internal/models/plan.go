package models

import "cloud.google.com/go/civil"

// DaysPerWeek is the number of day slots every Week carries, Monday first.
const DaysPerWeek = 7

// Plan is a week-by-week training plan. The same shape is used for the
// date-less template and for the dated, adjusted plan handed to storage.
type Plan struct {
	Weeks []Week `json:"weeks" yaml:"weeks"`
}

// Week is one labelled block of seven days ("11" … "1", "Race week").
type Week struct {
	Label string `json:"week" yaml:"week"`
	Days  []Day  `json:"days" yaml:"days"`
}

// Day is a single planned slot.
type Day struct {
	Exercise       string      `json:"exercise" yaml:"exercise"`
	TargetDistance string      `json:"target_distance" yaml:"target_distance"`
	TargetPace     string      `json:"target_pace" yaml:"target_pace"`
	Date           *civil.Date `json:"date,omitempty" yaml:"date,omitempty"`
	Weekday        string      `json:"weekday,omitempty" yaml:"weekday,omitempty"`
	AdjustmentNote string      `json:"adjustment_note,omitempty" yaml:"adjustment_note,omitempty"`
}

// HasDate reports whether anchoring assigned a calendar date to the day.
func (d *Day) HasDate() bool {
	return d.Date != nil
}
