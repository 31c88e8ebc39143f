package pricing

import (
	"fmt"
	"time"
)

// secondsPerYear fixes the year used by YearFraction at 31,556,952 seconds
// (the mean Gregorian year of 365.2425 days), per the core's external contract.
const secondsPerYear = 31556952.0

// YearFraction returns the signed year fraction between t0 and t1, i.e.
// (t1 - t0) in seconds divided by secondsPerYear. Calendar and
// business-day conventions are out of scope; this is the only notion of
// time the core understands.
func YearFraction(t0, t1 time.Time) float64 {
	return t1.Sub(t0).Seconds() / secondsPerYear
}

// MarketParams is the market state a solver is constructed over: spot,
// annualised volatility, the valuation instant, the risk-free rate, and
// the continuously compounded dividend/convenience yield. It is read-only
// to the core once constructed.
type MarketParams struct {
	Spot            float64
	Volatility      float64
	ValuationTime   time.Time
	RiskFreeRate    float64
	DividendYield   float64
	DividendSchedule *DividendSchedule
}

// ExerciseStyle distinguishes European (exercisable only at maturity) from
// American (exercisable at any time up to and including maturity).
type ExerciseStyle int

const (
	European ExerciseStyle = iota
	American
)

func (s ExerciseStyle) String() string {
	if s == American {
		return "american"
	}
	return "european"
}

// PayoffKind is the closed tagged sum of payoff shapes the core
// understands; there is no open inheritance over instrument types.
type PayoffKind int

const (
	ForwardPayoff PayoffKind = iota
	CallPayoff
	PutPayoff
)

func (k PayoffKind) String() string {
	switch k {
	case ForwardPayoff:
		return "forward"
	case CallPayoff:
		return "call"
	case PutPayoff:
		return "put"
	default:
		return "unknown"
	}
}

// Payoff evaluates the instrument's terminal payoff at spot x: Forward =
// x-K, Call = max(x-K,0), Put = max(K-x,0).
func (k PayoffKind) Payoff(x, strike float64) float64 {
	switch k {
	case ForwardPayoff:
		return x - strike
	case CallPayoff:
		if x > strike {
			return x - strike
		}
		return 0
	case PutPayoff:
		if strike > x {
			return strike - x
		}
		return 0
	default:
		return 0
	}
}

// Instrument is a tagged value describing what is being priced: strike,
// maturity instant, exercise style, and payoff kind.
type Instrument struct {
	Strike   float64
	Maturity time.Time
	Style    ExerciseStyle
	Payoff   PayoffKind
}

// PricingParams are the carrier-agnostic (S, K, σ, τ, r, q) derived from a
// MarketParams and an Instrument, with any discrete-dividend adjustment
// already folded into S and K. Invariant: τ = 0 implies price = payoff(S).
type PricingParams struct {
	S, K, Sigma, Tau, R, Q float64
}

// DerivePricingParams validates mkt and inst against each other and
// returns the six scalars every method downstream operates on.
func DerivePricingParams(mkt MarketParams, inst Instrument) (PricingParams, error) {
	if mkt.Spot <= 0 {
		return PricingParams{}, fmt.Errorf("spot %.6g must be positive: %w", mkt.Spot, ErrNumericalDomain)
	}
	if mkt.Volatility <= 0 {
		return PricingParams{}, fmt.Errorf("volatility %.6g must be positive: %w", mkt.Volatility, ErrNumericalDomain)
	}
	if inst.Strike <= 0 {
		return PricingParams{}, fmt.Errorf("strike %.6g must be positive: %w", inst.Strike, ErrNumericalDomain)
	}

	tau := YearFraction(mkt.ValuationTime, inst.Maturity)
	if tau < 0 {
		return PricingParams{}, fmt.Errorf("maturity precedes valuation time (τ=%.6g): %w", tau, ErrNumericalDomain)
	}

	S, K := mkt.Spot, inst.Strike
	if mkt.DividendSchedule != nil {
		S, K = mkt.DividendSchedule.Adjust(S, K, mkt.ValuationTime, inst.Maturity, mkt.RiskFreeRate)
	}

	return PricingParams{
		S:     S,
		K:     K,
		Sigma: mkt.Volatility,
		Tau:   tau,
		R:     mkt.RiskFreeRate,
		Q:     mkt.DividendYield,
	}, nil
}
