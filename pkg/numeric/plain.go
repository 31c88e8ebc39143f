package numeric

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// standardNormal is the Φ distribution used to ground Plain's Erf in the
// same library the wider retrieval pack reaches for (uscott-go-blackscholes,
// bcdannyboy/dquant both take gonum/stat/distuv as a direct dependency for
// exactly this).
var standardNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Plain is the undifferentiated float64 carrier: Val and the underlying
// value coincide, and no derivative information is propagated. It is the
// cheapest carrier and the one the CRR lattice uses internally, since the
// lattice obtains its greeks by bumped revaluation (§4.3.4) rather than by
// carrying derivatives through the tree.
type Plain float64

// Add implements Number.
func (p Plain) Add(o Plain) Plain { return p + o }

// Sub implements Number.
func (p Plain) Sub(o Plain) Plain { return p - o }

// Mul implements Number.
func (p Plain) Mul(o Plain) Plain { return p * o }

// Div implements Number.
func (p Plain) Div(o Plain) Plain { return p / o }

// Neg implements Number.
func (p Plain) Neg() Plain { return -p }

// Exp implements Number.
func (p Plain) Exp() Plain { return Plain(math.Exp(float64(p))) }

// Log implements Number.
func (p Plain) Log() Plain { return Plain(math.Log(float64(p))) }

// Sqrt implements Number.
func (p Plain) Sqrt() Plain { return Plain(math.Sqrt(float64(p))) }

// Pow implements Number.
func (p Plain) Pow(o Plain) Plain { return Plain(math.Pow(float64(p), float64(o))) }

// Erf implements Number via the standard normal CDF: erf(x) = 2*Φ(x*√2) - 1.
func (p Plain) Erf() Plain {
	return Plain(2*standardNormal.CDF(float64(p)*math.Sqrt2) - 1)
}

// Abs implements Number.
func (p Plain) Abs() Plain { return Plain(math.Abs(float64(p))) }

// Max implements Number.
func (p Plain) Max(o Plain) Plain {
	if p > o {
		return p
	}
	return o
}

// Gt implements Number.
func (p Plain) Gt(o Plain) bool { return p > o }

// Val implements Number.
func (p Plain) Val() float64 { return float64(p) }

// Const implements Number.
func (p Plain) Const(v float64) Plain { return Plain(v) }

// NormCDF is Φ(x) evaluated directly against the backing distribution,
// used by callers that want Φ without routing through Erf's identity.
func NormCDF(x float64) float64 { return standardNormal.CDF(x) }

// NormPDF is φ(x), the standard normal density.
func NormPDF(x float64) float64 { return standardNormal.Prob(x) }
