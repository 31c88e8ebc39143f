package pricing

import "math"

// Handle is the capability set every solver produces: price and the six
// sensitivities. Callers never observe which engine (CRR, QD+, analytical)
// computed the numbers. A Handle that failed to price surfaces the error
// from Err(); its greek accessors return NaN rather than panicking, so a
// caller that forgets to check Err() gets an unmistakable NaN instead of a
// stale zero. Its Price is NaN too, except on a QD+ handle (see Err).
type Handle interface {
	Price() float64
	Delta() float64
	Gamma() float64
	Vega() float64
	Theta() float64
	Rho() float64
	Psi() float64

	// Err returns the error, if any, surfaced during this handle's solve.
	// QD+ handles that failed to converge return a non-nil error here
	// while still reporting a European fall-back Price.
	Err() error
}

// AmericanHandle additionally exposes the early-exercise boundary as a
// function of time-to-maturity; only American instruments produce one.
type AmericanHandle interface {
	Handle

	// ExerciseBoundary returns the critical spot at time-to-maturity
	// tauPrime, which must lie in [0, τ]; outside that range it returns
	// NaN.
	ExerciseBoundary(tauPrime float64) float64
}

// greeks is the plain data the analytical solver's handles are built from;
// it implements Handle by itself.
type greeks struct {
	price, delta, gamma, vega, theta, rho, psi float64
	err                                         error
}

func failedGreeks(err error) greeks {
	return greeks{
		price: math.NaN(), delta: math.NaN(), gamma: math.NaN(),
		vega: math.NaN(), theta: math.NaN(), rho: math.NaN(), psi: math.NaN(),
		err: err,
	}
}

func (g greeks) Price() float64 { return g.price }
func (g greeks) Delta() float64 { return g.delta }
func (g greeks) Gamma() float64 { return g.gamma }
func (g greeks) Vega() float64  { return g.vega }
func (g greeks) Theta() float64 { return g.theta }
func (g greeks) Rho() float64   { return g.rho }
func (g greeks) Psi() float64   { return g.psi }
func (g greeks) Err() error     { return g.err }
