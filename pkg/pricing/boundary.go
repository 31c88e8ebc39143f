package pricing

import "math"

// MaturityBoundary is the closed-form early-exercise boundary at τ=0
// (§4.4), shared by the CRR and QD+ engines so neither re-derives it: for
// a call, K if r≤q else K·r/q; for a put, K if r≥q else K·r/q.
func MaturityBoundary(payoff PayoffKind, K, r, q float64) float64 {
	switch payoff {
	case CallPayoff:
		if r <= q {
			return K
		}
		return K * r / q
	case PutPayoff:
		if r >= q {
			return K
		}
		return K * r / q
	default:
		return math.NaN()
	}
}

// NeverOptimal reports whether early exercise is never optimal for the
// given payoff and carry parameters: an American call with q≤0 and q≤r is
// identical to its European counterpart (boundary = +∞); an American put
// with r≤0 and r≤q is identical to its European counterpart (boundary =
// 0).
func NeverOptimal(payoff PayoffKind, r, q float64) bool {
	switch payoff {
	case CallPayoff:
		return q <= 0 && q <= r
	case PutPayoff:
		return r <= 0 && r <= q
	default:
		return false
	}
}
