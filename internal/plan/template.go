package plan

import (
	"fmt"
	"os"

	"github.com/claude/paceplan/internal/models"
	"gopkg.in/yaml.v3"
)

// LoadTemplate reads a plan template from a YAML or JSON file.
func LoadTemplate(path string) (*models.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan template: %w", err)
	}
	p, err := ParseTemplate(data)
	if err != nil {
		return nil, fmt.Errorf("plan template %s: %w", path, err)
	}
	return p, nil
}

// ParseTemplate decodes a template document and checks its structure.
// JSON input is accepted since it is valid YAML.
func ParseTemplate(data []byte) (*models.Plan, error) {
	var p models.Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan template: %w", err)
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate reports the first structural problem in p.
func Validate(p *models.Plan) error {
	if len(p.Weeks) == 0 {
		return fmt.Errorf("plan has no weeks")
	}
	seen := make(map[string]int, len(p.Weeks))
	for i, w := range p.Weeks {
		if len(w.Days) != models.DaysPerWeek {
			return fmt.Errorf("week %d (%q) has %d days, want %d", i, w.Label, len(w.Days), models.DaysPerWeek)
		}
		// Labels decide dates, so a repeated label would put two days on one date.
		if j, dup := seen[w.Label]; dup {
			return fmt.Errorf("week %d repeats label %q of week %d", i, w.Label, j)
		}
		seen[w.Label] = i
	}
	return nil
}

// MustBeWellFormed panics if any week does not have exactly seven days.
// Templates are validated on load, so a violation here is a loader bug.
func MustBeWellFormed(p *models.Plan) {
	for i, w := range p.Weeks {
		if len(w.Days) != models.DaysPerWeek {
			panic(fmt.Sprintf("plan: week %d (%q) has %d days, want %d", i, w.Label, len(w.Days), models.DaysPerWeek))
		}
	}
}

// Clone returns a structural deep copy of p.
func Clone(p *models.Plan) *models.Plan {
	if p == nil {
		return nil
	}
	out := &models.Plan{Weeks: make([]models.Week, len(p.Weeks))}
	for i, w := range p.Weeks {
		days := make([]models.Day, len(w.Days))
		for j, d := range w.Days {
			days[j] = d
			if d.Date != nil {
				date := *d.Date
				days[j].Date = &date
			}
		}
		out.Weeks[i] = models.Week{Label: w.Label, Days: days}
	}
	return out
}
