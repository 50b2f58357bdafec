// Package pace parses and rewrites the free-text pace and distance fields of a plan day.
//
// A pace field holds one "M:SS" token or two joined by " - " (slower - faster).
// A distance field is a number with an optional unit ("5 mi", "10 km").
package pace

import (
	"fmt"
	"strconv"
	"strings"
)

// RangeSeparator joins the slow and fast tokens of a range target.
const RangeSeparator = " - "

const (
	MetersPerMile = 1609.344
	MetersPerKm   = 1000.0
)

// Unit is the distance unit a pace token is expressed per.
type Unit string

const (
	Mile      Unit = "mi"
	Kilometer Unit = "km"
)

// Meters returns the length of one unit in meters.
func (u Unit) Meters() float64 {
	if u == Kilometer {
		return MetersPerKm
	}
	return MetersPerMile
}

// ParseToken parses "M:SS" into total seconds.
func ParseToken(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, false
	}
	mins, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || mins < 0 {
		return 0, false
	}
	secPart := strings.TrimSpace(parts[1])
	if len(secPart) != 2 {
		return 0, false
	}
	sec, err := strconv.Atoi(secPart)
	if err != nil || sec < 0 || sec > 59 {
		return 0, false
	}
	return mins*60 + sec, true
}

// FormatToken renders total seconds as "M:SS". Negative input renders as "0:00".
func FormatToken(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Shift adds delta seconds to every parseable token of a pace field.
// Totals are clamped at zero; unparseable tokens are kept byte-for-byte.
func Shift(field string, delta int) string {
	if field == "" {
		return field
	}
	tokens := strings.Split(field, RangeSeparator)
	for i, tok := range tokens {
		sec, ok := ParseToken(tok)
		if !ok {
			continue
		}
		sec += delta
		if sec < 0 {
			sec = 0
		}
		tokens[i] = FormatToken(sec)
	}
	return strings.Join(tokens, RangeSeparator)
}

// Target is a parsed pace field in seconds per unit. For a single-valued
// target Slow == Fast.
type Target struct {
	Slow  int
	Fast  int
	Range bool
}

// ParseTarget parses a pace field. Every token must parse; more than two
// tokens is rejected.
func ParseTarget(field string) (Target, bool) {
	if strings.TrimSpace(field) == "" {
		return Target{}, false
	}
	tokens := strings.Split(field, RangeSeparator)
	switch len(tokens) {
	case 1:
		sec, ok := ParseToken(tokens[0])
		if !ok {
			return Target{}, false
		}
		return Target{Slow: sec, Fast: sec}, true
	case 2:
		a, ok := ParseToken(tokens[0])
		if !ok {
			return Target{}, false
		}
		b, ok := ParseToken(tokens[1])
		if !ok {
			return Target{}, false
		}
		if a < b {
			a, b = b, a
		}
		return Target{Slow: a, Fast: b, Range: true}, true
	}
	return Target{}, false
}

// Distance is a parsed target distance.
type Distance struct {
	Value float64
	Unit  Unit
}

// Meters converts the distance to meters.
func (d Distance) Meters() float64 {
	return d.Value * d.Unit.Meters()
}

// ParseDistance parses "5 mi", "5mi", "3.1 miles", "10 km" or a bare number (miles).
func ParseDistance(s string) (Distance, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Distance{}, false
	}
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	if i == 0 {
		return Distance{}, false
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return Distance{}, false
	}
	switch strings.TrimSpace(s[i:]) {
	case "", "mi", "mile", "miles":
		return Distance{Value: v, Unit: Mile}, true
	case "km", "kms", "kilometer", "kilometers", "kilometre", "kilometres":
		return Distance{Value: v, Unit: Kilometer}, true
	}
	return Distance{}, false
}

// SecondsPerUnit returns the pace of a session over meters in movingSeconds,
// rounded to the nearest whole second per unit.
func SecondsPerUnit(meters float64, movingSeconds int, unit Unit) (int, bool) {
	if meters <= 0 || movingSeconds <= 0 {
		return 0, false
	}
	units := meters / unit.Meters()
	p := float64(movingSeconds) / units
	return int(p + 0.5), true
}
