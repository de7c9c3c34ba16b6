package analyze

import (
	"fmt"
	"strings"

	"github.com/HartBrook/keyfit/internal/errors"
)

// DefaultCeilingMargin is added to a type's maximum when no explicit ceiling
// is configured.
const DefaultCeilingMargin = 3

// Range is an inclusive count window.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Contains reports whether n lies in the window.
func (r Range) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

// Mid returns the window's midpoint, rounded down.
func (r Range) Mid() int {
	return (r.Min + r.Max) / 2
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Min, r.Max)
}

func (r Range) validate(name string) error {
	if r.Min < 0 || r.Max < 0 {
		return errors.TargetInvalid(fmt.Sprintf("%s %s has a negative bound", name, r))
	}
	if r.Min > r.Max {
		return errors.TargetInvalid(fmt.Sprintf("%s %s has min greater than max", name, r))
	}
	return nil
}

// TargetSpec holds the constraints for one optimization run.
type TargetSpec struct {
	Keyword       string
	Units         []Unit
	CharRange     Range
	BaseRange     Range
	CompoundRange Range

	// Ceiling is the exclusive hard limit on any unit's count. Zero derives
	// it per type as the type's maximum plus DefaultCeilingMargin.
	Ceiling int
}

// NewTargetSpec normalizes and orders the unit lists. A unit listed twice in
// one list is kept once; a unit in both lists is an error.
func NewTargetSpec(keyword string, base, compound []string) (*TargetSpec, error) {
	spec := &TargetSpec{Keyword: strings.TrimSpace(keyword)}
	seen := make(map[string]UnitKind)
	add := func(kind UnitKind, raw []string) error {
		for _, text := range raw {
			u := NewUnit(kind, text)
			if u.Text() == "" {
				continue
			}
			if prev, ok := seen[u.Text()]; ok {
				if prev != kind {
					return errors.TargetInvalid(fmt.Sprintf("unit %q is listed as both base and compound", u.Text()))
				}
				continue
			}
			seen[u.Text()] = kind
			spec.Units = append(spec.Units, u)
		}
		return nil
	}
	if err := add(BaseKind, base); err != nil {
		return nil, err
	}
	if err := add(CompoundKind, compound); err != nil {
		return nil, err
	}
	return spec, nil
}

// Validate checks every range and the uniqueness of units.
func (s *TargetSpec) Validate() error {
	if err := s.CharRange.validate("char_range"); err != nil {
		return err
	}
	if err := s.BaseRange.validate("base_range"); err != nil {
		return err
	}
	if err := s.CompoundRange.validate("compound_range"); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Units))
	for _, u := range s.Units {
		if u.Text() == "" {
			return errors.TargetInvalid("empty unit")
		}
		if seen[u.Text()] {
			return errors.TargetInvalid(fmt.Sprintf("unit %q is listed more than once", u.Text()))
		}
		seen[u.Text()] = true
	}

	if s.Ceiling < 0 {
		return errors.TargetInvalid(fmt.Sprintf("ceiling %d is negative", s.Ceiling))
	}
	if s.Ceiling > 0 {
		for _, u := range s.Units {
			if r := s.RangeFor(u); s.Ceiling <= r.Max {
				return errors.TargetInvalid(fmt.Sprintf("ceiling %d must exceed the %s maximum %d", s.Ceiling, u.Kind(), r.Max))
			}
		}
	}
	return nil
}

// RangeFor returns the count window for u's type.
func (s *TargetSpec) RangeFor(u Unit) Range {
	if u.Kind() == CompoundKind {
		return s.CompoundRange
	}
	return s.BaseRange
}

// CeilingFor returns the exclusive hard limit for u.
func (s *TargetSpec) CeilingFor(u Unit) int {
	if s.Ceiling > 0 {
		return s.Ceiling
	}
	return s.RangeFor(u).Max + DefaultCeilingMargin
}

// Lookup finds a unit by its normalized text.
func (s *TargetSpec) Lookup(text string) (Unit, bool) {
	text = Fold(text)
	for _, u := range s.Units {
		if u.Text() == text {
			return u, true
		}
	}
	return nil, false
}

// Texts returns the units' texts of the given kind, in order.
func (s *TargetSpec) Texts(kind UnitKind) []string {
	var out []string
	for _, u := range s.Units {
		if u.Kind() == kind {
			out = append(out, u.Text())
		}
	}
	return out
}
