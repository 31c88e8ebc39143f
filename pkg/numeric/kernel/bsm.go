// Package kernel holds the Black–Scholes–Merton closed-form formulas —
// forward price, European call/put, and their analytic greeks — written
// once, generically, over numeric.Number. The analytical solver and QD+
// (for its European premium term ε and its boundary equations) call into
// this package rather than re-deriving the formulas; the CRR lattice uses
// only the payoff functions of package pricing. It is the single source of
// truth the rest of the module is tested against.
package kernel

import "github.com/johnayoung/bsm-option-engine/pkg/numeric"

// Eta is the call/put sign convention used throughout this package: +1 for
// a call, -1 for a put. It appears in every analytic greek formula as a
// single sign flip rather than as a branch per greek.
type Eta float64

const (
	Call Eta = 1
	Put  Eta = -1
)

// costOfCarry folds the spec's dividend-yield contract (S, q) into the
// single b = r - q used internally by every formula below, mirroring how
// the GBSM/BS1973/M1973 formula family is layered in the wider reference
// material: options-on-stock is the b = r - q specialization of a more
// general cost-of-carry model. This is purely an internal factoring; the
// public surface still takes (r, q) and never exposes b.
func costOfCarry[T numeric.Number[T]](r, q T) T {
	return r.Sub(q)
}

// D1 computes d1 = (ln(S/K) + (r - q + σ²/2)·τ) / (σ·√τ).
func D1[T numeric.Number[T]](S, K, sigma, tau, r, q T) T {
	b := costOfCarry(r, q)
	half := S.Const(0.5)
	logMoneyness := S.Div(K).Log()
	drift := b.Add(half.Mul(sigma).Mul(sigma)).Mul(tau)
	return logMoneyness.Add(drift).Div(sigma.Mul(tau.Sqrt()))
}

// D2 computes d2 = d1 - σ·√τ.
func D2[T numeric.Number[T]](d1, sigma, tau T) T {
	return d1.Sub(sigma.Mul(tau.Sqrt()))
}

// Phi is the standard normal CDF, Φ(x) = ½·(1 + erf(x/√2)).
func Phi[T numeric.Number[T]](x T) T {
	half := x.Const(0.5)
	one := x.Const(1)
	sqrt2 := x.Const(1.4142135623730951)
	return half.Mul(one.Add(x.Div(sqrt2).Erf()))
}

// LittlePhi is the standard normal density, φ(x) = e^(-x²/2)/√(2π).
func LittlePhi[T numeric.Number[T]](x T) T {
	invSqrt2Pi := x.Const(0.3989422804014327)
	half := x.Const(-0.5)
	exponent := half.Mul(x).Mul(x)
	return invSqrt2Pi.Mul(exponent.Exp())
}

// Forward is the forward price S·e^(-qτ) - K·e^(-rτ).
func Forward[T numeric.Number[T]](S, K, tau, r, q T) T {
	discS := q.Neg().Mul(tau).Exp()
	discK := r.Neg().Mul(tau).Exp()
	return S.Mul(discS).Sub(K.Mul(discK))
}

// EuropeanCall prices a European call: S·e^(-qτ)·Φ(d1) - K·e^(-rτ)·Φ(d2).
func EuropeanCall[T numeric.Number[T]](S, K, sigma, tau, r, q T) T {
	d1 := D1(S, K, sigma, tau, r, q)
	d2 := D2(d1, sigma, tau)
	discS := q.Neg().Mul(tau).Exp()
	discK := r.Neg().Mul(tau).Exp()
	return S.Mul(discS).Mul(Phi(d1)).Sub(K.Mul(discK).Mul(Phi(d2)))
}

// EuropeanPut prices a European put: K·e^(-rτ)·Φ(-d2) - S·e^(-qτ)·Φ(-d1).
func EuropeanPut[T numeric.Number[T]](S, K, sigma, tau, r, q T) T {
	d1 := D1(S, K, sigma, tau, r, q)
	d2 := D2(d1, sigma, tau)
	discS := q.Neg().Mul(tau).Exp()
	discK := r.Neg().Mul(tau).Exp()
	return K.Mul(discK).Mul(Phi(d2.Neg())).Sub(S.Mul(discS).Mul(Phi(d1.Neg())))
}

// European dispatches to EuropeanCall or EuropeanPut by sign.
func European[T numeric.Number[T]](eta Eta, S, K, sigma, tau, r, q T) T {
	if eta == Call {
		return EuropeanCall(S, K, sigma, tau, r, q)
	}
	return EuropeanPut(S, K, sigma, tau, r, q)
}

// Delta: η·e^(-qτ)·Φ(η·d1).
func Delta[T numeric.Number[T]](eta Eta, S, K, sigma, tau, r, q T) T {
	d1 := D1(S, K, sigma, tau, r, q)
	etaN := S.Const(float64(eta))
	discS := q.Neg().Mul(tau).Exp()
	return etaN.Mul(discS).Mul(Phi(etaN.Mul(d1)))
}

// Gamma: e^(-qτ)·φ(d1) / (S·σ·√τ). Identical for calls and puts.
func Gamma[T numeric.Number[T]](S, K, sigma, tau, r, q T) T {
	d1 := D1(S, K, sigma, tau, r, q)
	discS := q.Neg().Mul(tau).Exp()
	return discS.Mul(LittlePhi(d1)).Div(S.Mul(sigma).Mul(tau.Sqrt()))
}

// Vega: S·e^(-qτ)·φ(d1)·√τ. Identical for calls and puts.
func Vega[T numeric.Number[T]](S, K, sigma, tau, r, q T) T {
	d1 := D1(S, K, sigma, tau, r, q)
	discS := q.Neg().Mul(tau).Exp()
	return S.Mul(discS).Mul(LittlePhi(d1)).Mul(tau.Sqrt())
}

// Theta returns -∂Price/∂τ, per the public sign convention. The analytical
// solver's Plain carrier reports theta from this formula; its Dual and Var
// carriers and QD+ negate an automatic ∂/∂τ instead, and QD+ also uses this
// formula inside its c₀ coefficient.
func Theta[T numeric.Number[T]](eta Eta, S, K, sigma, tau, r, q T) T {
	d1 := D1(S, K, sigma, tau, r, q)
	d2 := D2(d1, sigma, tau)
	etaN := S.Const(float64(eta))
	discS := q.Neg().Mul(tau).Exp()
	discK := r.Neg().Mul(tau).Exp()

	term1 := r.Neg().Mul(K).Mul(discK).Mul(Phi(etaN.Mul(d2))).Mul(etaN)
	term2 := q.Mul(S).Mul(discS).Mul(Phi(etaN.Mul(d1))).Mul(etaN)
	half := S.Const(0.5)
	term3 := half.Mul(sigma).Mul(S).Mul(discS).Mul(LittlePhi(d1)).Div(tau.Sqrt())

	return term1.Add(term2).Sub(term3)
}

// Rho: η·K·τ·e^(-rτ)·Φ(η·d2).
func Rho[T numeric.Number[T]](eta Eta, S, K, sigma, tau, r, q T) T {
	d1 := D1(S, K, sigma, tau, r, q)
	d2 := D2(d1, sigma, tau)
	etaN := S.Const(float64(eta))
	discK := r.Neg().Mul(tau).Exp()
	return etaN.Mul(K).Mul(tau).Mul(discK).Mul(Phi(etaN.Mul(d2)))
}

// Psi: -η·S·τ·e^(-qτ)·Φ(η·d1).
func Psi[T numeric.Number[T]](eta Eta, S, K, sigma, tau, r, q T) T {
	d1 := D1(S, K, sigma, tau, r, q)
	etaN := S.Const(float64(eta))
	discS := q.Neg().Mul(tau).Exp()
	return etaN.Neg().Mul(S).Mul(tau).Mul(discS).Mul(Phi(etaN.Mul(d1)))
}
