package pricing

import (
	"fmt"
	"math"

	"github.com/johnayoung/bsm-option-engine/pkg/numeric"
	"github.com/johnayoung/bsm-option-engine/pkg/numeric/kernel"
)

// Carrier selects which of the three numeric carriers an AnalyticalSolver
// uses to produce its greeks. All three must (and, per the carrier-
// agreement test in pkg/numeric/kernel, do) price a European instrument
// identically to within 1e-10; they differ only in how the sensitivities
// are obtained.
type Carrier int

const (
	// PlainCarrier evaluates the §4.1 analytic greek formulas directly —
	// no differentiation takes place, since Plain propagates no
	// derivative information.
	PlainCarrier Carrier = iota

	// DualCarrier obtains each sensitivity by one forward-mode pass per
	// direction (delta+gamma share a pass seeded on S; vega, theta, rho,
	// psi each need their own pass seeded on σ, τ, r, q respectively).
	DualCarrier

	// VarCarrier obtains every sensitivity in a single reverse-mode
	// sweep, seeded on S so that the forward-over-reverse identity in
	// numeric.Tape.Gradient also recovers gamma alongside delta.
	VarCarrier
)

// AnalyticalSolver prices European instruments directly from the
// closed-form kernel, with no boundary fixed point and no lattice. QD+
// computes its European term ε from the kernel directly and falls back to
// this solver only when its boundary solve fails.
type AnalyticalSolver struct {
	mkt     MarketParams
	carrier Carrier
}

// NewAnalyticalSolver constructs a solver over mkt using the requested
// carrier.
func NewAnalyticalSolver(mkt MarketParams, carrier Carrier) *AnalyticalSolver {
	return &AnalyticalSolver{mkt: mkt, carrier: carrier}
}

// Solve prices inst. American instruments are UnsupportedInstrument here —
// use a CRR or QD+ solver for early exercise.
func (s *AnalyticalSolver) Solve(inst Instrument) (Handle, error) {
	if inst.Style != European {
		return nil, fmt.Errorf("analytical solver prices European instruments only: %w", ErrUnsupportedInstrument)
	}
	pp, err := DerivePricingParams(s.mkt, inst)
	if err != nil {
		return nil, err
	}

	if inst.Payoff == ForwardPayoff {
		return forwardHandle(pp), nil
	}
	eta, err := etaFor(inst.Payoff)
	if err != nil {
		return nil, err
	}

	switch s.carrier {
	case DualCarrier:
		return dualHandle(eta, pp), nil
	case VarCarrier:
		return varHandle(eta, pp), nil
	default:
		return plainHandle(eta, pp), nil
	}
}

func plainHandle(eta kernel.Eta, pp PricingParams) Handle {
	S, K := numeric.Plain(pp.S), numeric.Plain(pp.K)
	sigma, tau := numeric.Plain(pp.Sigma), numeric.Plain(pp.Tau)
	r, q := numeric.Plain(pp.R), numeric.Plain(pp.Q)

	return greeks{
		price: float64(kernel.European(eta, S, K, sigma, tau, r, q)),
		delta: float64(kernel.Delta(eta, S, K, sigma, tau, r, q)),
		gamma: float64(kernel.Gamma(S, K, sigma, tau, r, q)),
		vega:  float64(kernel.Vega(S, K, sigma, tau, r, q)),
		theta: float64(kernel.Theta(eta, S, K, sigma, tau, r, q)),
		rho:   float64(kernel.Rho(eta, S, K, sigma, tau, r, q)),
		psi:   float64(kernel.Psi(eta, S, K, sigma, tau, r, q)),
	}
}

func dualHandle(eta kernel.Eta, pp PricingParams) Handle {
	priceAt := func(S, K, sigma, tau, r, q numeric.Dual) numeric.Dual {
		return kernel.European(eta, S, K, sigma, tau, r, q)
	}
	constOf := func(v float64) numeric.Dual { return numeric.Dual{}.Const(v) }

	onS := priceAt(numeric.Seed(pp.S), constOf(pp.K), constOf(pp.Sigma), constOf(pp.Tau), constOf(pp.R), constOf(pp.Q))
	onSigma := priceAt(constOf(pp.S), constOf(pp.K), numeric.Seed(pp.Sigma), constOf(pp.Tau), constOf(pp.R), constOf(pp.Q))
	onTau := priceAt(constOf(pp.S), constOf(pp.K), constOf(pp.Sigma), numeric.Seed(pp.Tau), constOf(pp.R), constOf(pp.Q))
	onR := priceAt(constOf(pp.S), constOf(pp.K), constOf(pp.Sigma), constOf(pp.Tau), numeric.Seed(pp.R), constOf(pp.Q))
	onQ := priceAt(constOf(pp.S), constOf(pp.K), constOf(pp.Sigma), constOf(pp.Tau), constOf(pp.R), numeric.Seed(pp.Q))

	return greeks{
		price: onS.Val(),
		delta: onS.D1(),
		gamma: onS.D2(),
		vega:  onSigma.D1(),
		theta: -onTau.D1(),
		rho:   onR.D1(),
		psi:   onQ.D1(),
	}
}

func varHandle(eta kernel.Eta, pp PricingParams) Handle {
	tape := numeric.NewTape()
	S := tape.Leaf(pp.S, 1)
	K := S.Const(pp.K)
	sigma := S.Const(pp.Sigma)
	tau := S.Const(pp.Tau)
	r := S.Const(pp.R)
	q := S.Const(pp.Q)

	price := kernel.European(eta, S, K, sigma, tau, r, q)
	adj := tape.Gradient(price)

	delta, gamma := numeric.At(adj, S)
	vega, _ := numeric.At(adj, sigma)
	dTau, _ := numeric.At(adj, tau)
	rho, _ := numeric.At(adj, r)
	psi, _ := numeric.At(adj, q)

	return greeks{
		price: price.Val(),
		delta: delta,
		gamma: gamma,
		vega:  vega,
		theta: -dTau,
		rho:   rho,
		psi:   psi,
	}
}

// forwardHandle prices a Forward instrument. §4.1 does not define greek
// formulas for forwards, but they follow directly from differentiating
// S·e^(-qτ) - K·e^(-rτ), so they are given here rather than routed through
// a particular carrier.
func forwardHandle(pp PricingParams) Handle {
	discS := math.Exp(-pp.Q * pp.Tau)
	discK := math.Exp(-pp.R * pp.Tau)
	price := pp.S*discS - pp.K*discK

	return greeks{
		price: price,
		delta: discS,
		gamma: 0,
		vega:  0,
		theta: pp.Q*pp.S*discS - pp.R*pp.K*discK,
		rho:   pp.K * pp.Tau * discK,
		psi:   -pp.S * pp.Tau * discS,
	}
}
