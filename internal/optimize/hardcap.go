package optimize

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/HartBrook/keyfit/internal/analyze"
)

// enforceCeiling forces every unit below its ceiling, most-over unit first.
// It returns the violations left when the attempt budget runs out.
func (r *run) enforceCeiling() []string {
	for attempt := 0; attempt < r.hardCapAttempts; attempt++ {
		worst, ok := r.worstOverCeiling()
		if !ok {
			return nil
		}
		ceiling := r.spec.CeilingFor(worst.Unit)
		r.log.Warn("unit at or over its ceiling, forcing it down",
			zap.String("unit", worst.Unit.Text()),
			zap.Int("count", worst.Count),
			zap.Int("ceiling", ceiling))
		r.reduceUnit(worst.Unit, ceiling-1, true)
	}

	var out []string
	for _, uc := range r.measure().Units {
		ceiling := r.spec.CeilingFor(uc.Unit)
		if uc.Count < ceiling {
			continue
		}
		r.log.Error("unit still at or over its ceiling",
			zap.String("unit", uc.Unit.Text()),
			zap.Int("count", uc.Count),
			zap.Int("ceiling", ceiling),
			zap.Int("attempts", r.hardCapAttempts))
		out = append(out, fmt.Sprintf("%s unit %q appears %d times, ceiling is %d", uc.Unit.Kind(), uc.Unit.Text(), uc.Count, ceiling))
	}
	return out
}

func (r *run) worstOverCeiling() (analyze.UnitCount, bool) {
	var (
		worst analyze.UnitCount
		over  = -1
	)
	for _, uc := range r.measure().Units {
		if d := uc.Count - r.spec.CeilingFor(uc.Unit); d >= 0 && d > over {
			worst, over = uc, d
		}
	}
	return worst, over >= 0
}
