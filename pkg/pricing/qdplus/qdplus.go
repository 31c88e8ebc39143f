// Package qdplus implements Li (2009)'s QD+ analytic approximation for
// American options: a Newton fixed point on the critical boundary composed
// with a closed-form premium reconstruction, both expressed generically over
// numeric.Number so the reconstruction's sensitivities fall out of
// automatic differentiation rather than a second derivation.
//
// The source gives the boundary equation, q_QD, q_QD' and c₀ for a put and
// says to mirror it for a call. The mirror taken here: every quantity that
// appears asymmetrically (the Θ used in c₀, the sign inside q_QD, which
// side of S_b is the exercise region, whether the linear intrinsic is
// S-K or K-S) is written once as a function of the call/put sign η and
// reused unchanged by both branches — there is no separate call formula to
// drift out of sync with the put one.
package qdplus

import (
	"fmt"
	"math"

	"github.com/johnayoung/bsm-option-engine/pkg/numeric"
	"github.com/johnayoung/bsm-option-engine/pkg/numeric/kernel"
	"github.com/johnayoung/bsm-option-engine/pkg/pricing"
)

// Solver prices American calls and puts via the QD+ approximation. It holds
// no construction parameters beyond the market — unlike lattice.Config,
// QD+ has no step count to tune.
type Solver struct {
	mkt pricing.MarketParams
}

// NewSolver constructs a Solver over mkt.
func NewSolver(mkt pricing.MarketParams) *Solver {
	return &Solver{mkt: mkt}
}

// Solve prices inst, which must be American. European instruments should go
// through pricing.AnalyticalSolver instead.
func (s *Solver) Solve(inst pricing.Instrument) (pricing.Handle, error) {
	if inst.Style != pricing.American {
		return nil, fmt.Errorf("qdplus solver prices American instruments only: %w", pricing.ErrUnsupportedInstrument)
	}
	if inst.Payoff == pricing.ForwardPayoff {
		return nil, fmt.Errorf("qdplus: forward payoff not supported: %w", pricing.ErrUnsupportedInstrument)
	}
	eta, err := pricing.EtaFor(inst.Payoff)
	if err != nil {
		return nil, err
	}
	pp, err := pricing.DerivePricingParams(s.mkt, inst)
	if err != nil {
		return nil, err
	}

	europeanFallback := func() (pricing.Handle, error) {
		return pricing.NewAnalyticalSolver(s.mkt, pricing.PlainCarrier).Solve(pricing.Instrument{
			Strike: inst.Strike, Maturity: inst.Maturity, Style: pricing.European, Payoff: inst.Payoff,
		})
	}

	if pricing.NeverOptimal(inst.Payoff, pp.R, pp.Q) {
		eur, err := europeanFallback()
		if err != nil {
			return nil, err
		}
		return neverOptimalHandle{Handle: eur, payoff: inst.Payoff, tau: pp.Tau}, nil
	}

	if pp.Tau == 0 {
		eur, err := europeanFallback()
		if err != nil {
			return nil, err
		}
		boundary := pricing.MaturityBoundary(inst.Payoff, pp.K, pp.R, pp.Q)
		return frozenBoundaryHandle{Handle: eur, boundary: boundary}, nil
	}

	sb, convErr := solveBoundary(eta, pp)
	if convErr != nil {
		eur, err := europeanFallback()
		if err != nil {
			return nil, err
		}
		return frozenBoundaryHandle{Handle: failedGreeksOver(eur), boundary: sb, err: convErr}, nil
	}

	return buildHandle(eta, pp, sb, inst.Payoff), nil
}

// carryTerms returns M = 2r/σ² and N̂ = 2(r-q)/σ².
func carryTerms[T numeric.Number[T]](r, q, sigma T) (M, Nhat T) {
	two := sigma.Const(2)
	sigma2 := sigma.Mul(sigma)
	M = two.Mul(r).Div(sigma2)
	Nhat = two.Mul(r.Sub(q)).Div(sigma2)
	return
}

// hOf returns h(τ) = 1 - e^(-rτ).
func hOf[T numeric.Number[T]](r, tau T) T {
	return r.Const(1).Sub(r.Neg().Mul(tau).Exp())
}

// qQD is q_QD(h): the sign inside the square root alternates by η, "-" for
// a call and "+" for a put.
func qQD[T numeric.Number[T]](eta kernel.Eta, M, Nhat, h T) T {
	nhatMinus1 := Nhat.Sub(M.Const(1))
	sqrtTerm := nhatMinus1.Mul(nhatMinus1).Add(M.Const(4).Mul(M).Div(h)).Sqrt()
	sign := M.Const(-float64(eta))
	return M.Const(-0.5).Mul(nhatMinus1.Add(sign.Mul(sqrtTerm)))
}

// qQDPrime is q_QD'(h); the magnitude of the square root term is the same
// for both signs of η so this needs no call/put branch.
func qQDPrime[T numeric.Number[T]](M, Nhat, h T) T {
	nhatMinus1 := Nhat.Sub(M.Const(1))
	sqrtTerm := nhatMinus1.Mul(nhatMinus1).Add(M.Const(4).Mul(M).Div(h)).Sqrt()
	return M.Div(h.Mul(h).Mul(sqrtTerm))
}

// bCoef is b(h).
func bCoef[T numeric.Number[T]](M, Nhat, h, qQDv, qQDp T) T {
	denom := M.Const(2).Mul(qQDv).Add(Nhat).Sub(M.Const(1))
	return M.Const(0.5).Mul(M.Const(1).Sub(h)).Mul(M).Mul(qQDp).Div(denom)
}

// intrinsicLinear is the un-clamped linear intrinsic value S-K (call) or
// K-S (put); used both at the boundary itself and at an arbitrary spot
// inside the exercise region, where it coincides with the true payoff.
func intrinsicLinear[T numeric.Number[T]](eta kernel.Eta, S, K T) T {
	if eta == kernel.Call {
		return S.Sub(K)
	}
	return K.Sub(S)
}

// c0Coef is c₀(h, S_b, ε), evaluated at whatever spot Sb is passed (the
// frozen boundary when called from the reconstruction, the Newton iterate
// itself when called from the fixed-point equation).
func c0Coef[T numeric.Number[T]](eta kernel.Eta, Sb, K, sigma, tau, r, q, M, Nhat, h, qQDv, qQDp T) T {
	theta := kernel.Theta(eta, Sb, K, sigma, tau, r, q)
	eps := kernel.European(eta, Sb, K, sigma, tau, r, q)
	intrinsicDiff := intrinsicLinear(eta, Sb, K).Sub(eps)

	rTau := r.Mul(tau).Exp()
	thetaTerm := theta.Mul(rTau).Div(r.Mul(intrinsicDiff))

	denom := M.Const(2).Mul(qQDv).Add(Nhat).Sub(M.Const(1))
	bracket := M.Const(1).Div(h).Sub(thetaTerm).Add(qQDp.Div(denom))
	coef := M.Const(1).Sub(h).Mul(M).Div(denom).Neg()
	return coef.Mul(bracket)
}

// fixedPointF is F(S_b): the boundary equation Newton drives to zero.
func fixedPointF[T numeric.Number[T]](eta kernel.Eta, Sb, K, sigma, tau, r, q T) T {
	M, Nhat := carryTerms(r, q, sigma)
	h := hOf(r, tau)
	qv := qQD(eta, M, Nhat, h)
	qp := qQDPrime(M, Nhat, h)
	c0v := c0Coef(eta, Sb, K, sigma, tau, r, q, M, Nhat, h, qv, qp)

	etaN := Sb.Const(float64(eta))
	discQ := q.Neg().Mul(tau).Exp()
	d1 := kernel.D1(Sb, K, sigma, tau, r, q)
	term1 := Sb.Const(1).Sub(discQ.Mul(kernel.Phi(etaN.Mul(d1))))

	eps := kernel.European(eta, Sb, K, sigma, tau, r, q)
	intrinsicDiff := intrinsicLinear(eta, Sb, K).Sub(eps)
	term2 := etaN.Neg().Mul(qv.Add(c0v)).Mul(intrinsicDiff)

	return term1.Mul(Sb).Add(term2).Abs()
}

// solveBoundary runs Newton on fixedPointF starting from S_b = K.
func solveBoundary(eta kernel.Eta, pp pricing.PricingParams) (float64, error) {
	f := func(Sb numeric.Dual) numeric.Dual {
		K := Sb.Const(pp.K)
		sigma := Sb.Const(pp.Sigma)
		tau := Sb.Const(pp.Tau)
		r := Sb.Const(pp.R)
		q := Sb.Const(pp.Q)
		return fixedPointF(eta, Sb, K, sigma, tau, r, q)
	}
	sb, err := pricing.Newton(pp.K, f)
	if err != nil {
		return sb, fmt.Errorf("qdplus boundary solve: %w", err)
	}
	return sb, nil
}

func exercised(eta kernel.Eta, S, Sb float64) bool {
	if eta == kernel.Call {
		return S >= Sb
	}
	return S <= Sb
}

// reconstructedPrice is the §4.4 premium formula with the boundary Sb held
// as a frozen scalar constant (never re-solved) regardless of which
// parameter the caller has seeded for differentiation.
func reconstructedPrice[T numeric.Number[T]](eta kernel.Eta, S, K, sigma, tau, r, q T, sb float64) T {
	if exercised(eta, S.Val(), sb) {
		return intrinsicLinear(eta, S, K)
	}

	Sb := S.Const(sb)
	M, Nhat := carryTerms(r, q, sigma)
	h := hOf(r, tau)
	qv := qQD(eta, M, Nhat, h)
	qp := qQDPrime(M, Nhat, h)
	bv := bCoef(M, Nhat, h, qv, qp)
	c0v := c0Coef(eta, Sb, K, sigma, tau, r, q, M, Nhat, h, qv, qp)

	eps := kernel.European(eta, S, K, sigma, tau, r, q)
	epsAtSb := kernel.European(eta, Sb, K, sigma, tau, r, q)
	intrinsicDiffAtSb := intrinsicLinear(eta, Sb, K).Sub(epsAtSb)

	L := S.Div(Sb).Log()
	denom := S.Const(1).Sub(bv.Mul(L).Mul(L)).Sub(c0v.Mul(L))
	ratio := S.Div(Sb).Pow(qv)

	return eps.Add(intrinsicDiffAtSb.Div(denom).Mul(ratio))
}

// buildHandle differentiates reconstructedPrice once per direction (S, σ,
// τ, r, q), identically in structure to pricing's dualHandle, and packages
// the result as an AmericanHandle exposing the single boundary point S_b
// solved for this instrument's τ.
func buildHandle(eta kernel.Eta, pp pricing.PricingParams, sb float64, payoff pricing.PayoffKind) pricing.Handle {
	priceAt := func(S, K, sigma, tau, r, q numeric.Dual) numeric.Dual {
		return reconstructedPrice(eta, S, K, sigma, tau, r, q, sb)
	}
	constOf := func(v float64) numeric.Dual { return numeric.Dual{}.Const(v) }

	onS := priceAt(numeric.Seed(pp.S), constOf(pp.K), constOf(pp.Sigma), constOf(pp.Tau), constOf(pp.R), constOf(pp.Q))
	onSigma := priceAt(constOf(pp.S), constOf(pp.K), numeric.Seed(pp.Sigma), constOf(pp.Tau), constOf(pp.R), constOf(pp.Q))
	onTau := priceAt(constOf(pp.S), constOf(pp.K), constOf(pp.Sigma), numeric.Seed(pp.Tau), constOf(pp.R), constOf(pp.Q))
	onR := priceAt(constOf(pp.S), constOf(pp.K), constOf(pp.Sigma), constOf(pp.Tau), numeric.Seed(pp.R), constOf(pp.Q))
	onQ := priceAt(constOf(pp.S), constOf(pp.K), constOf(pp.Sigma), constOf(pp.Tau), constOf(pp.R), numeric.Seed(pp.Q))

	return boundaryHandle{
		price: onS.Val(), delta: onS.D1(), gamma: onS.D2(),
		vega: onSigma.D1(), theta: -onTau.D1(), rho: onR.D1(), psi: onQ.D1(),
		tau: pp.Tau, boundary: sb, pp: pp, payoff: payoff,
	}
}

// boundaryHandle is the successful-convergence American handle: it carries
// its own frozen boundary and tau so ExerciseBoundary can recognise the one
// point (τ' = τ, or τ' = 0 via the shared maturity closed form) it actually
// has information about.
type boundaryHandle struct {
	price, delta, gamma, vega, theta, rho, psi float64
	tau, boundary                              float64
	pp                                          pricing.PricingParams
	payoff                                      pricing.PayoffKind
}

func (h boundaryHandle) Price() float64 { return h.price }
func (h boundaryHandle) Delta() float64 { return h.delta }
func (h boundaryHandle) Gamma() float64 { return h.gamma }
func (h boundaryHandle) Vega() float64  { return h.vega }
func (h boundaryHandle) Theta() float64 { return h.theta }
func (h boundaryHandle) Rho() float64   { return h.rho }
func (h boundaryHandle) Psi() float64   { return h.psi }
func (h boundaryHandle) Err() error     { return nil }

// ExerciseBoundary returns the maturity closed form at τ'=0, the solved
// boundary at τ'=τ, and NaN elsewhere: QD+ solves a single fixed point per
// instrument, not a boundary curve, so intermediate τ' are genuinely
// unknown rather than approximated.
func (h boundaryHandle) ExerciseBoundary(tauPrime float64) float64 {
	if tauPrime < 0 || tauPrime > h.tau {
		return math.NaN()
	}
	if tauPrime == 0 {
		return pricing.MaturityBoundary(h.payoff, h.pp.K, h.pp.R, h.pp.Q)
	}
	if math.Abs(tauPrime-h.tau) < 1e-9 {
		return h.boundary
	}
	return math.NaN()
}

// neverOptimalHandle wraps the European handle for the q≤0≤... / r≤0≤...
// never-optimal cases, adding the constant ±∞/0 boundary.
type neverOptimalHandle struct {
	pricing.Handle
	payoff pricing.PayoffKind
	tau    float64
}

func (h neverOptimalHandle) ExerciseBoundary(tauPrime float64) float64 {
	if tauPrime < 0 || tauPrime > h.tau {
		return math.NaN()
	}
	if h.payoff == pricing.CallPayoff {
		return math.Inf(1)
	}
	return 0
}

// frozenBoundaryHandle wraps a Handle (successful European fallback or a
// NaN-greek failure handle) with a single constant boundary value, used for
// both the τ=0 maturity case and the convergence-failure case.
type frozenBoundaryHandle struct {
	pricing.Handle
	boundary float64
	err      error
}

func (h frozenBoundaryHandle) Err() error {
	if h.err != nil {
		return h.err
	}
	return h.Handle.Err()
}

func (h frozenBoundaryHandle) ExerciseBoundary(float64) float64 { return h.boundary }

// failedGreeksOver keeps eur's price (the European fall-back) but replaces
// every other accessor with NaN, per §4.4's convergence-failure contract.
func failedGreeksOver(eur pricing.Handle) pricing.Handle {
	return nanGreeksHandle{price: eur.Price()}
}

type nanGreeksHandle struct {
	price float64
}

func (h nanGreeksHandle) Price() float64 { return h.price }
func (h nanGreeksHandle) Delta() float64 { return math.NaN() }
func (h nanGreeksHandle) Gamma() float64 { return math.NaN() }
func (h nanGreeksHandle) Vega() float64  { return math.NaN() }
func (h nanGreeksHandle) Theta() float64 { return math.NaN() }
func (h nanGreeksHandle) Rho() float64   { return math.NaN() }
func (h nanGreeksHandle) Psi() float64   { return math.NaN() }
func (h nanGreeksHandle) Err() error     { return nil }
