package models

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// Status is the traffic-light grade of one planned day against what was run.
type Status int

const (
	StatusUnknown Status = iota
	StatusRed
	StatusYellow
	StatusGreen
)

func (s Status) String() string {
	switch s {
	case StatusRed:
		return "RED"
	case StatusYellow:
		return "YELLOW"
	case StatusGreen:
		return "GREEN"
	default:
		return "UNKNOWN"
	}
}

// Resolved reports whether the status carries information (anything but UNKNOWN).
func (s Status) Resolved() bool {
	return s == StatusRed || s == StatusYellow || s == StatusGreen
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseStatus accepts the upper- or lower-case names; "N/A" maps to UNKNOWN.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RED":
		return StatusRed, nil
	case "YELLOW":
		return StatusYellow, nil
	case "GREEN":
		return StatusGreen, nil
	case "UNKNOWN", "N/A", "":
		return StatusUnknown, nil
	}
	return StatusUnknown, fmt.Errorf("unknown status %q", s)
}

// StatusMap is the per-date classification handed to the adjustment engine.
// Dates without a matching activity are simply absent.
type StatusMap map[civil.Date]Status
