package pricing

import (
	"fmt"
	"math"

	"github.com/johnayoung/bsm-option-engine/pkg/numeric"
)

const (
	newtonMaxIterations = 100
	newtonTolerance     = 1e-9
)

// Newton solves f(x) = 0 by undamped Newton–Raphson: x ← x - f(x)/f'(x), up
// to 100 iterations, stopping when |f(x)| < 1e-9. f is evaluated on a
// numeric.Dual seeded at the current iterate, so the derivative supplier
// is the carrier itself — there is no separate analytic-derivative
// argument to keep in sync with f.
//
// Returns ErrConvergenceFailure if the iteration budget is exhausted, and
// ErrNumericalDomain if f'(x) vanishes or the iterate stops being finite.
func Newton(x0 float64, f func(numeric.Dual) numeric.Dual) (float64, error) {
	x := x0
	for i := 0; i < newtonMaxIterations; i++ {
		fx := f(numeric.Seed(x))
		val, deriv := fx.Val(), fx.D1()

		if math.Abs(val) < newtonTolerance {
			return x, nil
		}
		if deriv == 0 || math.IsNaN(deriv) || math.IsInf(deriv, 0) {
			return x, fmt.Errorf("newton: derivative vanished at x=%.6g after %d iterations: %w", x, i, ErrNumericalDomain)
		}

		x = x - val/deriv
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return x, fmt.Errorf("newton: iterate diverged at step %d: %w", i, ErrNumericalDomain)
		}
	}
	return x, fmt.Errorf("newton: exceeded %d iterations without reaching tolerance %.0e: %w", newtonMaxIterations, newtonTolerance, ErrConvergenceFailure)
}
