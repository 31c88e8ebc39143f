package pricing

import (
	"fmt"

	"github.com/johnayoung/bsm-option-engine/pkg/numeric"
	"github.com/johnayoung/bsm-option-engine/pkg/numeric/kernel"
)

// EtaFor maps a call/put payoff kind to the kernel's sign convention; other
// engines (QD+) that need the sign without re-deriving it call this rather
// than duplicating the switch.
func EtaFor(kind PayoffKind) (kernel.Eta, error) {
	return etaFor(kind)
}

func etaFor(kind PayoffKind) (kernel.Eta, error) {
	switch kind {
	case CallPayoff:
		return kernel.Call, nil
	case PutPayoff:
		return kernel.Put, nil
	default:
		return 0, fmt.Errorf("implied solve requires a call or put instrument, got %s: %w", kind, ErrUnsupportedInstrument)
	}
}

// ImpliedVolatility solves |P* - price(σ)| = 0 for σ by Newton, starting
// from σ₀ = 0.10. Only European call/put instruments are supported; the
// observed premium observedPrice is P*.
func ImpliedVolatility(mkt MarketParams, inst Instrument, observedPrice float64) (float64, error) {
	eta, err := etaFor(inst.Payoff)
	if err != nil {
		return 0, err
	}
	pp, err := DerivePricingParams(mkt, inst)
	if err != nil {
		return 0, err
	}

	target := observedPrice
	f := func(sigma numeric.Dual) numeric.Dual {
		S := sigma.Const(pp.S)
		K := sigma.Const(pp.K)
		tau := sigma.Const(pp.Tau)
		r := sigma.Const(pp.R)
		q := sigma.Const(pp.Q)
		price := kernel.European(eta, S, K, sigma, tau, r, q)
		return price.Sub(sigma.Const(target)).Abs()
	}

	sigma, err := Newton(0.10, f)
	if err != nil {
		return sigma, fmt.Errorf("implied volatility: %w", err)
	}
	return sigma, nil
}

// ImpliedDividend solves |F* - forward(q)| = 0 for q by Newton, starting
// from q₀ = 0.
func ImpliedDividend(mkt MarketParams, inst Instrument, observedForward float64) (float64, error) {
	pp, err := DerivePricingParams(mkt, inst)
	if err != nil {
		return 0, err
	}

	target := observedForward
	f := func(q numeric.Dual) numeric.Dual {
		S := q.Const(pp.S)
		K := q.Const(pp.K)
		tau := q.Const(pp.Tau)
		r := q.Const(pp.R)
		fwd := kernel.Forward(S, K, tau, r, q)
		return fwd.Sub(q.Const(target)).Abs()
	}

	q, err := Newton(0, f)
	if err != nil {
		return q, fmt.Errorf("implied dividend: %w", err)
	}
	return q, nil
}
