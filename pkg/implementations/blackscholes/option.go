// Package blackscholes implements the Derivative interface over the BSM
// option-pricing core in pkg/pricing: European options price directly off
// the closed-form kernel, American options route through the CRR lattice,
// and both pick up a continuous dividend/convenience yield when the caller
// sets one in PriceParams.
package blackscholes

import (
	"context"
	"errors"
	"time"

	"github.com/johnayoung/bsm-option-engine/pkg/mechanisms"
	"github.com/johnayoung/bsm-option-engine/pkg/pricing"
	"github.com/johnayoung/bsm-option-engine/pkg/pricing/facade"
	"github.com/johnayoung/bsm-option-engine/pkg/pricing/lattice"
	"github.com/johnayoung/bsm-option-engine/pkg/primitives"
)

// defaultCRRSteps is the lattice depth used when pricing an American option
// through this wrapper; callers needing control over the accuracy/cost
// trade-off should use pkg/pricing/facade directly instead of this adapter.
const defaultCRRSteps = 1000

// yearsToMaturity turns a float64 year fraction into an (arbitrary but
// fixed) absolute valuation instant and a maturity instant
// `years`·`secondsPerYear` seconds later, since pkg/pricing works in absolute time but this wrapper's public
// contract (inherited from the Derivative interface) works in year
// fractions directly.
const secondsPerYear = 31556952.0

func yearsToMaturity(years float64) (valuation, maturity time.Time) {
	valuation = time.Unix(0, 0).UTC()
	maturity = valuation.Add(time.Duration(years * secondsPerYear * float64(time.Second)))
	return
}

var (
	// ErrInvalidStrike is returned when the strike price is invalid
	ErrInvalidStrike = errors.New("strike price must be positive")

	// ErrInvalidUnderlying is returned when the underlying price is invalid
	ErrInvalidUnderlying = errors.New("underlying price must be positive")

	// ErrInvalidVolatility is returned when volatility is invalid
	ErrInvalidVolatility = errors.New("volatility must be non-negative")

	// ErrInvalidTimeToExpiry is returned when time to expiry is invalid
	ErrInvalidTimeToExpiry = errors.New("time to expiry must be non-negative")

	// ErrOptionExpired is returned when attempting operations on expired options
	ErrOptionExpired = errors.New("option has expired")
)

// Option represents a vanilla call or put priced under the BSM model.
// Exercise style (European or American) is supplied per call via
// PriceParams.ExerciseStyle rather than fixed at construction, so the same
// Option value can be re-priced under either convention.
//
// Thread Safety: This implementation is not thread-safe. Concurrent access
// should be protected by the caller.
type Option struct {
	// optionID uniquely identifies this option
	optionID string

	// optionType is either call or put
	optionType mechanisms.OptionType

	// strikePrice is the strike price (K) of the option
	strikePrice primitives.Price

	// timeToExpiry is the time remaining until expiration in years (T)
	// This is stored at creation but can be overridden in pricing calls
	timeToExpiry primitives.Decimal

	// entryPrice is the price at which the position was entered (for settlement)
	entryPrice primitives.Price

	// positionSize is the number of contracts held (positive for long, negative for short)
	positionSize primitives.Decimal

	// direction indicates long or short position
	direction mechanisms.PositionDirection

	// settled indicates if the option has been settled
	settled bool
}

// NewOption creates a new option; its exercise style is chosen per pricing
// call via PriceParams.ExerciseStyle.
//
// Parameters:
//   - optionID: Unique identifier for this option
//   - optionType: Call or Put
//   - strikePrice: Strike price (must be positive)
//   - timeToExpiry: Time to expiry in years (must be non-negative)
//   - entryPrice: Price at which position was entered
//   - positionSize: Number of contracts (positive for long, negative for short)
//
// Returns error if any parameter is invalid.
func NewOption(
	optionID string,
	optionType mechanisms.OptionType,
	strikePrice primitives.Price,
	timeToExpiry primitives.Decimal,
	entryPrice primitives.Price,
	positionSize primitives.Decimal,
) (*Option, error) {
	if optionID == "" {
		return nil, errors.New("optionID cannot be empty")
	}

	if optionType != mechanisms.OptionTypeCall && optionType != mechanisms.OptionTypePut {
		return nil, errors.New("invalid option type")
	}

	if strikePrice.IsZero() {
		return nil, ErrInvalidStrike
	}

	if timeToExpiry.LessThan(primitives.Zero()) {
		return nil, ErrInvalidTimeToExpiry
	}

	if entryPrice.IsZero() {
		return nil, errors.New("entry price must be positive")
	}

	// Determine position direction from position size
	direction := mechanisms.PositionDirectionLong
	if positionSize.IsNegative() {
		direction = mechanisms.PositionDirectionShort
	}

	return &Option{
		optionID:     optionID,
		optionType:   optionType,
		strikePrice:  strikePrice,
		timeToExpiry: timeToExpiry,
		entryPrice:   entryPrice,
		positionSize: positionSize,
		direction:    direction,
		settled:      false,
	}, nil
}

// Mechanism returns the mechanism type identifier.
func (o *Option) Mechanism() mechanisms.MechanismType {
	return mechanisms.MechanismTypeDerivative
}

// Venue returns the venue identifier.
func (o *Option) Venue() string {
	return "black-scholes"
}

// Price returns the fair value of the option under the BSM model.
//
// Required parameters:
//   - UnderlyingPrice: Current price of the underlying asset (S)
//   - Volatility: Implied volatility (σ) as decimal (e.g., 0.20 for 20%)
//   - RiskFreeRate: Risk-free rate (r) as decimal (e.g., 0.05 for 5%)
//   - TimeToExpiry: Time to expiry in years (T) - optional, uses stored value if zero
//   - DividendYield: continuous dividend/convenience yield (q), defaults to 0
//   - ExerciseStyle: European (default) or American; American routes through the CRR lattice
func (o *Option) Price(ctx context.Context, params mechanisms.PriceParams) (primitives.Price, error) {
	// Validate required parameters
	if params.UnderlyingPrice.IsZero() {
		return primitives.ZeroPrice(), ErrInvalidUnderlying
	}

	if params.Volatility.LessThan(primitives.Zero()) {
		return primitives.ZeroPrice(), ErrInvalidVolatility
	}

	// Use provided TimeToExpiry or fall back to stored value
	timeToExpiry := params.TimeToExpiry
	if timeToExpiry.IsZero() {
		timeToExpiry = o.timeToExpiry
	}

	if timeToExpiry.LessThan(primitives.Zero()) {
		return primitives.ZeroPrice(), ErrInvalidTimeToExpiry
	}

	// Handle expiry case (T = 0) and the zero-volatility degenerate case;
	// pkg/pricing requires σ>0, so both route to intrinsic value here.
	if timeToExpiry.IsZero() || params.Volatility.IsZero() {
		return o.intrinsicValue(params.UnderlyingPrice)
	}

	handle, err := o.solve(params, timeToExpiry.Float64())
	if err != nil {
		return primitives.ZeroPrice(), err
	}

	price := handle.Price()
	if price < 0 {
		price = 0
	}
	return primitives.NewPrice(primitives.NewDecimalFromFloat(price))
}

// solve derives pricing.MarketParams/Instrument from params and o, routing
// American exercise through the CRR lattice and everything else through the
// closed-form kernel.
func (o *Option) solve(params mechanisms.PriceParams, tauYears float64) (pricing.Handle, error) {
	valuation, maturity := yearsToMaturity(tauYears)

	mkt := pricing.MarketParams{
		Spot:          params.UnderlyingPrice.Decimal().Float64(),
		Volatility:    params.Volatility.Float64(),
		ValuationTime: valuation,
		RiskFreeRate:  params.RiskFreeRate.Float64(),
		DividendYield: params.DividendYield.Float64(),
	}

	payoff := pricing.CallPayoff
	if o.optionType == mechanisms.OptionTypePut {
		payoff = pricing.PutPayoff
	}

	style := pricing.European
	cfg := facade.Config{Method: facade.Analytical, Carrier: pricing.PlainCarrier}
	if params.ExerciseStyle == mechanisms.ExerciseStyleAmerican {
		style = pricing.American
		cfg = facade.Config{Method: facade.CRR, Lattice: lattice.Config{Steps: defaultCRRSteps}}
	}

	inst := pricing.Instrument{
		Strike:   o.strikePrice.Decimal().Float64(),
		Maturity: maturity,
		Style:    style,
		Payoff:   payoff,
	}

	solver, err := facade.NewSolver(mkt, cfg)
	if err != nil {
		return nil, err
	}
	return solver.Solve(inst)
}

// Greeks calculates the option Greeks (risk sensitivities).
//
// Returns:
//   - Delta: Rate of change of option price with respect to underlying price
//   - Gamma: Rate of change of delta with respect to underlying price
//   - Theta: Rate of change of option price with respect to time (per year)
//   - Vega: Rate of change of option price with respect to volatility (per 1% change)
//   - Rho: Rate of change of option price with respect to risk-free rate (per 1% change)
func (o *Option) Greeks(ctx context.Context, params mechanisms.PriceParams) (mechanisms.Greeks, error) {
	// Validate required parameters
	if params.UnderlyingPrice.IsZero() {
		return mechanisms.Greeks{}, ErrInvalidUnderlying
	}

	if params.Volatility.LessThan(primitives.Zero()) {
		return mechanisms.Greeks{}, ErrInvalidVolatility
	}

	// Use provided TimeToExpiry or fall back to stored value
	timeToExpiry := params.TimeToExpiry
	if timeToExpiry.IsZero() {
		timeToExpiry = o.timeToExpiry
	}

	if timeToExpiry.LessThan(primitives.Zero()) {
		return mechanisms.Greeks{}, ErrInvalidTimeToExpiry
	}

	// At expiry, most Greeks are zero or undefined
	if timeToExpiry.IsZero() {
		// Delta is 1 for ITM call, -1 for ITM put, 0 otherwise
		S := params.UnderlyingPrice.Decimal()
		K := o.strikePrice.Decimal()
		var delta primitives.Decimal
		if o.optionType == mechanisms.OptionTypeCall {
			if S.GreaterThan(K) {
				delta = primitives.NewDecimal(1)
			} else {
				delta = primitives.Zero()
			}
		} else {
			if S.LessThan(K) {
				delta = primitives.NewDecimal(-1)
			} else {
				delta = primitives.Zero()
			}
		}

		return mechanisms.Greeks{
			Delta: delta,
			Gamma: primitives.Zero(),
			Theta: primitives.Zero(),
			Vega:  primitives.Zero(),
			Rho:   primitives.Zero(),
			Psi:   primitives.Zero(),
		}, nil
	}

	handle, err := o.solve(params, timeToExpiry.Float64())
	if err != nil {
		return mechanisms.Greeks{}, err
	}
	if err := handle.Err(); err != nil {
		return mechanisms.Greeks{}, err
	}

	// Vega and rho are reported per 1% change, matching this wrapper's
	// documented contract; pkg/pricing itself reports the raw partials.
	return mechanisms.Greeks{
		Delta: primitives.NewDecimalFromFloat(handle.Delta()),
		Gamma: primitives.NewDecimalFromFloat(handle.Gamma()),
		Theta: primitives.NewDecimalFromFloat(handle.Theta()),
		Vega:  primitives.NewDecimalFromFloat(handle.Vega() / 100),
		Rho:   primitives.NewDecimalFromFloat(handle.Rho() / 100),
		Psi:   primitives.NewDecimalFromFloat(handle.Psi() / 100),
	}, nil
}

// Settle always returns a zero Amount and an error: it has no final
// underlying price to settle against and does not read one from ctx.
// SettleWithPrice computes the settlement value from a given final price.
func (o *Option) Settle(ctx context.Context) (primitives.Amount, error) {
	if o.settled {
		return primitives.ZeroAmount(), errors.New("option already settled")
	}

	// Extract final price from context metadata
	// In a real implementation, this would come from the strategy's market snapshot
	return primitives.ZeroAmount(), errors.New("settle requires final underlying price in context metadata with key 'final_price'")
}

// SettleWithPrice settles the option given a final underlying price.
// This is a helper method that calculates settlement value.
func (o *Option) SettleWithPrice(finalPrice primitives.Price) (primitives.Amount, error) {
	if o.settled {
		return primitives.ZeroAmount(), errors.New("option already settled")
	}

	intrinsic, err := o.intrinsicValue(finalPrice)
	if err != nil {
		return primitives.ZeroAmount(), err
	}

	// Calculate P&L: (intrinsic value - entry price) * position size
	pnlPerContract := intrinsic.Decimal().Sub(o.entryPrice.Decimal())
	totalPnl := pnlPerContract.Mul(o.positionSize)

	o.settled = true

	return primitives.NewAmount(totalPnl.Abs())
}

// intrinsicValue calculates the intrinsic value of the option.
// Call: max(S - K, 0)
// Put: max(K - S, 0)
func (o *Option) intrinsicValue(underlyingPrice primitives.Price) (primitives.Price, error) {
	S := underlyingPrice.Decimal()
	K := o.strikePrice.Decimal()

	var intrinsic primitives.Decimal
	if o.optionType == mechanisms.OptionTypeCall {
		intrinsic = S.Sub(K)
		if intrinsic.LessThan(primitives.Zero()) {
			intrinsic = primitives.Zero()
		}
	} else {
		intrinsic = K.Sub(S)
		if intrinsic.LessThan(primitives.Zero()) {
			intrinsic = primitives.Zero()
		}
	}

	return primitives.NewPrice(intrinsic)
}

// OptionID returns the option identifier.
func (o *Option) OptionID() string {
	return o.optionID
}

// OptionType returns the option type (call or put).
func (o *Option) OptionType() mechanisms.OptionType {
	return o.optionType
}

// StrikePrice returns the strike price.
func (o *Option) StrikePrice() primitives.Price {
	return o.strikePrice
}

// TimeToExpiry returns the stored time to expiry.
func (o *Option) TimeToExpiry() primitives.Decimal {
	return o.timeToExpiry
}

// IsSettled returns whether the option has been settled.
func (o *Option) IsSettled() bool {
	return o.settled
}
