package numeric

import "math"

// Dual is a forward-mode truncated Taylor carrier: a value together with
// its first, second and third derivatives along a single perturbation
// direction, propagated through elementary operations by the chain rule
// applied at the operator level (Faà di Bruno, truncated at order 3).
//
// c[0] is the value, c[1..3] the first/second/third derivatives. Seed a
// variable of interest with Seed and read results back with Val/D1/D2/D3.
// Because a Dual only tracks one direction at a time, computing several
// partials (e.g. delta and vega) costs one forward pass per direction —
// this is forward-mode's known trade-off against reverse-mode (Var),
// which recovers every partial in a single pass.
type Dual struct {
	c [4]float64
}

// Seed constructs a Dual representing an independent variable with value v:
// the identity function of itself, so its own first derivative is 1 and
// higher derivatives are 0.
func Seed(v float64) Dual {
	return Dual{c: [4]float64{v, 1, 0, 0}}
}

// Val implements Number.
func (d Dual) Val() float64 { return d.c[0] }

// D1 returns the first derivative along the seeded direction.
func (d Dual) D1() float64 { return d.c[1] }

// D2 returns the second derivative along the seeded direction.
func (d Dual) D2() float64 { return d.c[2] }

// D3 returns the third derivative along the seeded direction.
func (d Dual) D3() float64 { return d.c[3] }

// Const implements Number.
func (d Dual) Const(v float64) Dual { return Dual{c: [4]float64{v, 0, 0, 0}} }

// Add implements Number.
func (d Dual) Add(o Dual) Dual {
	return Dual{c: [4]float64{
		d.c[0] + o.c[0],
		d.c[1] + o.c[1],
		d.c[2] + o.c[2],
		d.c[3] + o.c[3],
	}}
}

// Sub implements Number.
func (d Dual) Sub(o Dual) Dual {
	return Dual{c: [4]float64{
		d.c[0] - o.c[0],
		d.c[1] - o.c[1],
		d.c[2] - o.c[2],
		d.c[3] - o.c[3],
	}}
}

// Neg implements Number.
func (d Dual) Neg() Dual {
	return Dual{c: [4]float64{-d.c[0], -d.c[1], -d.c[2], -d.c[3]}}
}

// Mul implements Number via the order-3 Leibniz product rule.
func (d Dual) Mul(o Dual) Dual {
	u, v := d.c, o.c
	return Dual{c: [4]float64{
		u[0] * v[0],
		u[1]*v[0] + u[0]*v[1],
		u[2]*v[0] + 2*u[1]*v[1] + u[0]*v[2],
		u[3]*v[0] + 3*u[2]*v[1] + 3*u[1]*v[2] + u[0]*v[3],
	}}
}

// reciprocal composes g(x) = 1/x with the jet via Faà di Bruno.
func reciprocal(u [4]float64) [4]float64 {
	x := u[0]
	g0 := 1 / x
	g1 := -1 / (x * x)
	g2 := 2 / (x * x * x)
	g3 := -6 / (x * x * x * x)
	return compose(g0, g1, g2, g3, u)
}

// Div implements Number as multiplication by the reciprocal.
func (d Dual) Div(o Dual) Dual {
	return d.Mul(Dual{c: reciprocal(o.c)})
}

// compose applies Faà di Bruno's formula (order <= 3, univariate) to embed
// an elementary function g, known at u[0] via its derivatives g0..g3, into
// the jet u = [u(x), u'(x), u''(x), u'''(x)].
func compose(g0, g1, g2, g3 float64, u [4]float64) [4]float64 {
	u1, u2, u3 := u[1], u[2], u[3]
	h0 := g0
	h1 := g1 * u1
	h2 := g2*u1*u1 + g1*u2
	h3 := g3*u1*u1*u1 + 3*g2*u1*u2 + g1*u3
	return [4]float64{h0, h1, h2, h3}
}

// Exp implements Number.
func (d Dual) Exp() Dual {
	e := math.Exp(d.c[0])
	return Dual{c: compose(e, e, e, e, d.c)}
}

// Log implements Number.
func (d Dual) Log() Dual {
	x := d.c[0]
	g0 := math.Log(x)
	g1 := 1 / x
	g2 := -1 / (x * x)
	g3 := 2 / (x * x * x)
	return Dual{c: compose(g0, g1, g2, g3, d.c)}
}

// Sqrt implements Number.
func (d Dual) Sqrt() Dual {
	x := d.c[0]
	s := math.Sqrt(x)
	g0 := s
	g1 := 0.5 / s
	g2 := -0.25 / (s * x)
	g3 := 0.375 / (s * x * x)
	return Dual{c: compose(g0, g1, g2, g3, d.c)}
}

// Pow implements Number as exp(o * log(d)), reusing the Exp/Log jets so no
// separate fractional-exponent composition formula is needed.
func (d Dual) Pow(o Dual) Dual {
	return o.Mul(d.Log()).Exp()
}

// Erf implements Number. erf'(x) = (2/√π)·e^(-x²).
func (d Dual) Erf() Dual {
	const twoOverSqrtPi = 1.1283791670955126
	x := d.c[0]
	e := math.Exp(-x * x)
	g0 := math.Erf(x)
	g1 := twoOverSqrtPi * e
	g2 := -2 * x * g1
	g3 := g1 * (4*x*x - 2)
	return Dual{c: compose(g0, g1, g2, g3, d.c)}
}

// Abs implements Number. Derivatives away from x=0 are those of the
// identity scaled by sign(x); the kernel never evaluates Abs at x=0.
func (d Dual) Abs() Dual {
	x := d.c[0]
	s := 1.0
	if x < 0 {
		s = -1.0
	}
	return Dual{c: compose(math.Abs(x), s, 0, 0, d.c)}
}

// Max implements Number by selecting the larger branch at the value level;
// the derivative carried forward is that of the winning branch (standard
// subgradient convention at a tie is to prefer the receiver).
func (d Dual) Max(o Dual) Dual {
	if d.c[0] >= o.c[0] {
		return d
	}
	return o
}

// Gt implements Number.
func (d Dual) Gt(o Dual) bool { return d.c[0] > o.c[0] }
