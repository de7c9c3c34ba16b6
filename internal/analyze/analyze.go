// Package analyze counts target units and characters in a text and decides
// whether the text satisfies a TargetSpec.
package analyze

import (
	"fmt"

	"github.com/HartBrook/keyfit/internal/document"
)

// UnitCount is the measured count of one unit.
type UnitCount struct {
	Unit  Unit
	Count int
	Range Range
	Valid bool
}

// Over reports how far the count is above the window's maximum.
func (uc UnitCount) Over() int {
	return max(0, uc.Count-uc.Range.Max)
}

// Under reports how far the count is below the window's minimum.
func (uc UnitCount) Under() int {
	return max(0, uc.Range.Min-uc.Count)
}

// Result is the analysis of one text against one TargetSpec.
type Result struct {
	CharCount      int
	CharRange      Range
	ValidCharCount bool
	Units          []UnitCount // Same order as TargetSpec.Units
	ValidUnits     bool
	FullyOptimized bool
}

// Analyze validates spec and measures text against it. The trailing
// reference section, if any, is excluded.
func Analyze(text string, spec *TargetSpec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return Measure(text, spec), nil
}

// Measure is Analyze for a spec that has already been validated.
func Measure(text string, spec *TargetSpec) *Result {
	body, _ := document.SplitReferences(text)
	folded := Fold(body)

	res := &Result{
		CharCount:  document.CharCount(body),
		CharRange:  spec.CharRange,
		Units:      make([]UnitCount, len(spec.Units)),
		ValidUnits: true,
	}
	res.ValidCharCount = spec.CharRange.Contains(res.CharCount)

	for i, u := range spec.Units {
		r := spec.RangeFor(u)
		n := u.countFolded(folded)
		res.Units[i] = UnitCount{Unit: u, Count: n, Range: r, Valid: r.Contains(n)}
		if !res.Units[i].Valid {
			res.ValidUnits = false
		}
	}
	res.FullyOptimized = res.ValidCharCount && res.ValidUnits
	return res
}

// Get returns the count for the unit with the given text.
func (r *Result) Get(text string) (UnitCount, bool) {
	text = Fold(text)
	for _, uc := range r.Units {
		if uc.Unit.Text() == text {
			return uc, true
		}
	}
	return UnitCount{}, false
}

// Invalid returns the units whose counts fall outside their windows.
func (r *Result) Invalid() []UnitCount {
	var out []UnitCount
	for _, uc := range r.Units {
		if !uc.Valid {
			out = append(out, uc)
		}
	}
	return out
}

// Violations describes every unsatisfied constraint.
func (r *Result) Violations() []string {
	var out []string
	switch {
	case r.CharCount < r.CharRange.Min:
		out = append(out, fmt.Sprintf("char count %d is below the minimum %d", r.CharCount, r.CharRange.Min))
	case r.CharCount > r.CharRange.Max:
		out = append(out, fmt.Sprintf("char count %d is above the maximum %d", r.CharCount, r.CharRange.Max))
	}
	for _, uc := range r.Units {
		switch {
		case uc.Under() > 0:
			out = append(out, fmt.Sprintf("%s unit %q appears %d times, needs at least %d", uc.Unit.Kind(), uc.Unit.Text(), uc.Count, uc.Range.Min))
		case uc.Over() > 0:
			out = append(out, fmt.Sprintf("%s unit %q appears %d times, allows at most %d", uc.Unit.Kind(), uc.Unit.Text(), uc.Count, uc.Range.Max))
		}
	}
	return out
}

// Satisfied counts the constraints that hold, the char window included.
func (r *Result) Satisfied() int {
	n := 0
	if r.ValidCharCount {
		n++
	}
	for _, uc := range r.Units {
		if uc.Valid {
			n++
		}
	}
	return n
}

// Deviation sums how far every measure lies outside its window. Unit
// deviations weigh more than character deviations.
func (r *Result) Deviation() int {
	d := 0
	if r.CharCount < r.CharRange.Min {
		d += r.CharRange.Min - r.CharCount
	} else if r.CharCount > r.CharRange.Max {
		d += r.CharCount - r.CharRange.Max
	}
	for _, uc := range r.Units {
		d += 100 * (uc.Over() + uc.Under())
	}
	return d
}

// Better reports whether r is closer to satisfying its TargetSpec than other.
func (r *Result) Better(other *Result) bool {
	if other == nil {
		return true
	}
	if r.FullyOptimized != other.FullyOptimized {
		return r.FullyOptimized
	}
	if a, b := r.Satisfied(), other.Satisfied(); a != b {
		return a > b
	}
	return r.Deviation() < other.Deviation()
}
