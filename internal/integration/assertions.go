package integration

import (
	"slices"
	"strings"
	"testing"

	"github.com/HartBrook/keyfit/internal/optimize"
)

// Asserter provides assertion helpers for optimization results.
type Asserter struct {
	t      *testing.T
	source string
	result *optimize.Result
	oracle *ScriptedOracle
}

// NewAsserter creates an asserter for one result.
func NewAsserter(t *testing.T, source string, result *optimize.Result, orc *ScriptedOracle) *Asserter {
	return &Asserter{t: t, source: source, result: result, oracle: orc}
}

// ContainsText checks if the optimized text contains a substring.
func (a *Asserter) ContainsText(text string) bool {
	return strings.Contains(a.result.Text, text)
}

// UnitCount returns the final count of a unit, or -1 if it is not tracked.
func (a *Asserter) UnitCount(unit string) int {
	uc, ok := a.result.Analysis.Get(unit)
	if !ok {
		return -1
	}
	return uc.Count
}

// RunAssertions runs all assertions from a fixture definition.
func (a *Asserter) RunAssertions(assertions FixtureAssertions) {
	a.t.Helper()
	res := a.result

	if assertions.Status != "" && string(res.Status) != assertions.Status {
		a.t.Errorf("expected status %s, got %s (unsatisfied: %v)", assertions.Status, res.Status, res.Unsatisfied)
	}
	if assertions.FullyOptimized != nil && res.Analysis.FullyOptimized != *assertions.FullyOptimized {
		a.t.Errorf("expected fully optimized = %v, got %v", *assertions.FullyOptimized, res.Analysis.FullyOptimized)
	}
	if assertions.Unchanged && res.Text != a.source {
		a.t.Errorf("expected text to be unchanged, got %q", res.Text)
	}
	if assertions.Text != "" && res.Text != assertions.Text {
		a.t.Errorf("expected text %q, got %q", assertions.Text, res.Text)
	}

	for _, text := range assertions.Contains {
		if !a.ContainsText(text) {
			a.t.Errorf("expected text to contain %q, got %q", text, res.Text)
		}
	}
	for _, text := range assertions.NotContains {
		if a.ContainsText(text) {
			a.t.Errorf("expected text NOT to contain %q, got %q", text, res.Text)
		}
	}

	for unit, want := range assertions.Units {
		if got := a.UnitCount(unit); got != want {
			a.t.Errorf("expected unit %q to appear %d times, got %d", unit, want, got)
		}
	}

	if assertions.Unsatisfied != nil && !slices.Equal(assertions.Unsatisfied, res.Unsatisfied) {
		a.t.Errorf("expected unsatisfied %v, got %v", assertions.Unsatisfied, res.Unsatisfied)
	}
	if assertions.CeilingViolations != nil && len(res.CeilingViolations) != *assertions.CeilingViolations {
		a.t.Errorf("expected %d ceiling violations, got %v", *assertions.CeilingViolations, res.CeilingViolations)
	}
	if assertions.OracleCalls != nil && a.oracle.Calls() != *assertions.OracleCalls {
		a.t.Errorf("expected %d oracle calls, got %d", *assertions.OracleCalls, a.oracle.Calls())
	}

	if assertions.MaxChars > 0 && res.Analysis.CharCount > assertions.MaxChars {
		a.t.Errorf("expected at most %d chars, got %d", assertions.MaxChars, res.Analysis.CharCount)
	}
	if assertions.MinChars > 0 && res.Analysis.CharCount < assertions.MinChars {
		a.t.Errorf("expected at least %d chars, got %d", assertions.MinChars, res.Analysis.CharCount)
	}
}
