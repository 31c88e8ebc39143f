// Package numeric provides the abstract scalar carrier that the pricing
// kernels are written against. A single generic formula, compiled once
// against the Number constraint, runs unchanged over plain float64
// (Plain), a forward-mode truncated Taylor series (Dual), or a
// reverse-mode expression tape (Var) — yielding price-only, price+one
// directional derivative family, or price+all-greeks-in-one-pass
// respectively, depending only on which carrier the caller picks.
package numeric

// Number is the elementary-function contract closed-form kernels are
// written against. T is the concrete carrier (Plain, Dual, or Var);
// the self-referential constraint lets kernel code be written as plain
// generic functions with no boxing or interface dispatch in the hot
// path.
//
// Const lets any existing value of the carrier spawn a new constant of
// the same kind — for Plain this is a no-op wrap, for Dual it is a
// zero-tangent jet, and for Var it is a tape leaf with no parents and
// zero local gradient. Kernel code never constructs a carrier value
// from a bare float literal directly; it always does so via Const on
// a value already in hand, which keeps reverse-mode tape membership
// (and dual jet order) consistent.
type Number[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Div(T) T
	Neg() T

	Exp() T
	Log() T
	Sqrt() T
	Pow(T) T
	Erf() T
	Abs() T

	Max(T) T
	Gt(T) bool

	// Val projects the carrier down to its underlying float64, discarding
	// any derivative information. Used at the pricing-handle boundary and
	// nowhere inside kernel formulas themselves.
	Val() float64

	// Const returns a new value of the same carrier representing the
	// constant v, with no dependency on any variable already tracked by
	// the receiver.
	Const(v float64) T
}
