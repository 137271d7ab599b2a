// Package schedule maps a child's age in months to the vaccines of the
// national immunisation calendar.
package schedule

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"vacciassist/internal/domain"
)

//go:embed pni.yaml
var pniYAML []byte

// Bracket is an inclusive age range in months.
type Bracket struct {
	MinMonths int      `yaml:"min_months" validate:"min=0"`
	MaxMonths int      `yaml:"max_months" validate:"gtefield=MinMonths"`
	Vaccines  []string `yaml:"vaccines" validate:"required,min=1"`
}

// Table is an ordered list of non-overlapping brackets and the vaccines
// recommended for ages outside all of them.
type Table struct {
	Brackets []Bracket `yaml:"brackets" validate:"required,dive"`
	Fallback []string  `yaml:"fallback" validate:"required,min=1"`
}

// Recommendation is the result of a lookup.
type Recommendation struct {
	Months   int      `json:"months"`
	Vaccines []string `json:"vaccines"`
}

// Parse decodes and validates a YAML table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	if err := validator.New().Struct(t); err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}
	for i := 1; i < len(t.Brackets); i++ {
		if t.Brackets[i].MinMonths <= t.Brackets[i-1].MaxMonths {
			return nil, fmt.Errorf("invalid schedule: bracket %d overlaps bracket %d", i, i-1)
		}
	}
	return &t, nil
}

var pni = sync.OnceValue(func() *Table {
	t, err := Parse(pniYAML)
	if err != nil {
		panic(err)
	}
	return t
})

// PNI returns the built-in calendar.
func PNI() *Table { return pni() }

// Lookup returns the vaccines for an age in months.
func (t *Table) Lookup(months int) []string {
	for _, b := range t.Brackets {
		if months >= b.MinMonths && months <= b.MaxMonths {
			return append([]string(nil), b.Vaccines...)
		}
	}
	return append([]string(nil), t.Fallback...)
}

// Recommend computes the age on ref and looks it up.
func (t *Table) Recommend(birth, ref time.Time) (Recommendation, error) {
	months, err := MonthsBetween(birth, ref)
	if err != nil {
		return Recommendation{}, err
	}
	return Recommendation{Months: months, Vaccines: t.Lookup(months)}, nil
}

// MonthsBetween counts calendar months from birth to ref; the day of month
// is ignored.
func MonthsBetween(birth, ref time.Time) (int, error) {
	by, bm, bd := birth.Date()
	ry, rm, rd := ref.Date()
	if time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC).After(time.Date(ry, rm, rd, 0, 0, 0, 0, time.UTC)) {
		return 0, fmt.Errorf("%w: %s is after %s", domain.ErrInvalidBirthDate,
			birth.Format(time.DateOnly), ref.Format(time.DateOnly))
	}
	return (ry-by)*12 + int(rm-bm), nil
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", domain.ErrInvalidBirthDate, s)
	}
	return d, nil
}
