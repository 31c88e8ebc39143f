package pricing

import "errors"

// The error taxonomy every method in this package surfaces. Callers should
// compare with errors.Is; call sites wrap these with fmt.Errorf("...: %w")
// to attach which parameter or which lattice node triggered them.
var (
	// ErrLatticeInfeasible is returned when the CRR risk-neutral
	// probability p falls outside (0,1) for the chosen (σ, r-q, Δt).
	ErrLatticeInfeasible = errors.New("pricing: lattice infeasible for chosen parameters")

	// ErrConvergenceFailure is returned when a Newton iteration exhausts
	// its 100-iteration budget without reaching the tolerance.
	ErrConvergenceFailure = errors.New("pricing: newton iteration did not converge")

	// ErrNumericalDomain is returned for inputs outside the formulas'
	// domain (σ≤0, τ<0, S≤0, K≤0, a negative radicand, or a vanishing
	// derivative during root solving).
	ErrNumericalDomain = errors.New("pricing: input outside numerical domain")

	// ErrUnsupportedInstrument is returned when a payoff kind is not
	// implemented by the selected method.
	ErrUnsupportedInstrument = errors.New("pricing: payoff kind not supported by this method")
)
