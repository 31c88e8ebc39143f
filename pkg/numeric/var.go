package numeric

import "math"

// jet1 is a first-order forward pair (value, tangent-along-the-seeded-
// direction) used internally by Var both as the primal payload of a tape
// node and as the representation of that node's local partial derivative.
// Carrying the local partial as a jet1 rather than a bare float64 is what
// lets Gradient recover second derivatives: see the comment on Tape.Gradient.
type jet1 struct {
	v, d float64
}

func (a jet1) add(b jet1) jet1 { return jet1{a.v + b.v, a.d + b.d} }
func (a jet1) sub(b jet1) jet1 { return jet1{a.v - b.v, a.d - b.d} }
func (a jet1) neg() jet1       { return jet1{-a.v, -a.d} }
func (a jet1) mul(b jet1) jet1 { return jet1{a.v * b.v, a.d*b.v + a.v*b.d} }
func (a jet1) recip() jet1     { return jet1{1 / a.v, -a.d / (a.v * a.v)} }
func (a jet1) div(b jet1) jet1 { return a.mul(b.recip()) }

// node is one entry of a Tape: its forward value (primal and tangent along
// the tape's seeded direction) and, for non-leaf nodes, the local partial
// derivative of this node's value with respect to each of up to two
// parents — itself a jet1, so that it too carries how that partial moves
// along the seeded direction.
type node struct {
	value    jet1
	nParents int
	parents  [2]int
	local    [2]jet1
}

// Tape is the expression graph a reverse-mode evaluation is recorded onto.
// A Tape is not safe for concurrent use; the design notes call for a fresh
// tape per Newton iterate (or per pricing call) rather than mutating one
// tape in place, so Tapes are cheap, throwaway, and never shared across
// goroutines — satisfying the "AD tape is thread-local" requirement by
// construction rather than by locking.
type Tape struct {
	nodes []node
}

// NewTape returns an empty tape.
func NewTape() *Tape { return &Tape{} }

func (t *Tape) push(n node) int {
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

// Leaf records an independent variable on the tape. seedTangent should be 1
// for the single variable whose second derivative the caller wants back
// out of Gradient (conventionally the underlying spot, to recover gamma
// alongside delta/vega/theta/rho/psi in one sweep) and 0 for every other
// leaf.
func (t *Tape) Leaf(v, seedTangent float64) Var {
	id := t.push(node{value: jet1{v, seedTangent}})
	return Var{tape: t, id: id}
}

// Var is a reverse-mode tape-recorded scalar. Two Vars must share the same
// Tape to be combined; combining Vars from different tapes is a caller
// error (mirrors the teacher's convention of panicking on cross-instance
// misuse rather than threading an error return through arithmetic).
type Var struct {
	tape *Tape
	id   int
}

func (v Var) val() jet1 { return v.tape.nodes[v.id].value }

func (a Var) unary(result, partial jet1) Var {
	id := a.tape.push(node{value: result, nParents: 1, parents: [2]int{a.id, 0}, local: [2]jet1{partial, {}}})
	return Var{tape: a.tape, id: id}
}

func (a Var) binary(b Var, result, pa, pb jet1) Var {
	if a.tape != b.tape {
		panic("numeric: Var operands from different tapes")
	}
	id := a.tape.push(node{value: result, nParents: 2, parents: [2]int{a.id, b.id}, local: [2]jet1{pa, pb}})
	return Var{tape: a.tape, id: id}
}

// Add implements Number.
func (a Var) Add(b Var) Var {
	return a.binary(b, a.val().add(b.val()), jet1{1, 0}, jet1{1, 0})
}

// Sub implements Number.
func (a Var) Sub(b Var) Var {
	return a.binary(b, a.val().sub(b.val()), jet1{1, 0}, jet1{-1, 0})
}

// Mul implements Number. The local partial wrt one operand is exactly the
// other operand's own jet1 — its value is the partial's value, and its
// tangent is how that partial moves along the seeded direction.
func (a Var) Mul(b Var) Var {
	av, bv := a.val(), b.val()
	return a.binary(b, av.mul(bv), bv, av)
}

// Div implements Number.
func (a Var) Div(b Var) Var {
	av, bv := a.val(), b.val()
	recipB := bv.recip()
	value := av.mul(recipB)
	pb := recipB.mul(recipB).mul(av).neg()
	return a.binary(b, value, recipB, pb)
}

// Neg implements Number.
func (a Var) Neg() Var {
	return a.unary(a.val().neg(), jet1{-1, 0})
}

// Exp implements Number. exp's own derivative is itself, so the local
// partial is exactly the computed value.
func (a Var) Exp() Var {
	x := a.val()
	e := math.Exp(x.v)
	value := jet1{e, e * x.d}
	return a.unary(value, value)
}

// Log implements Number. d(log a)/da = 1/a.
func (a Var) Log() Var {
	x := a.val()
	value := jet1{math.Log(x.v), x.d / x.v}
	return a.unary(value, x.recip())
}

// Sqrt implements Number. d(sqrt a)/da = 0.5/sqrt(a).
func (a Var) Sqrt() Var {
	x := a.val()
	s := math.Sqrt(x.v)
	value := jet1{s, 0.5 * x.d / s}
	partial := jet1{0.5, 0}.mul(value.recip())
	return a.unary(value, partial)
}

// Pow implements Number as exp(b*log(a)), reusing Log/Mul/Exp so no
// dedicated fractional-exponent partial is needed.
func (a Var) Pow(b Var) Var {
	return a.Log().Mul(b).Exp()
}

// Erf implements Number. erf'(x) = (2/√π)·e^(-x²).
func (a Var) Erf() Var {
	const twoOverSqrtPi = 1.1283791670955126
	x := a.val()
	gPrime := twoOverSqrtPi * math.Exp(-x.v*x.v)
	value := jet1{math.Erf(x.v), gPrime * x.d}
	partial := jet1{gPrime, gPrime * (-2 * x.v) * x.d}
	return a.unary(value, partial)
}

// Abs implements Number. The kernel never evaluates Abs at x=0, so the
// non-differentiable kink is not a concern in practice.
func (a Var) Abs() Var {
	x := a.val()
	sign := 1.0
	if x.v < 0 {
		sign = -1.0
	}
	value := jet1{math.Abs(x.v), sign * x.d}
	return a.unary(value, jet1{sign, 0})
}

// Max implements Number by aliasing the winning operand's node outright —
// no new node is needed since the result is literally one of the inputs.
func (a Var) Max(b Var) Var {
	if a.val().v >= b.val().v {
		return a
	}
	return b
}

// Gt implements Number.
func (a Var) Gt(b Var) bool { return a.val().v > b.val().v }

// Val implements Number.
func (a Var) Val() float64 { return a.val().v }

// Const implements Number by recording a fresh leaf with zero tangent: a
// true constant contributes nothing to Gradient's second-derivative
// recovery regardless of which variable was seeded.
func (a Var) Const(v float64) Var { return a.tape.Leaf(v, 0) }

// Gradient runs one reverse sweep from root back to every node on its
// tape. The returned slice is indexed by the id a Leaf or intermediate Var
// was assigned; adj[leaf.id].v is ∂root/∂leaf (the ordinary reverse-mode
// gradient entry), and adj[leaf.id].d is ∂²root/∂leaf∂seed, where seed is
// whichever leaf was constructed with seedTangent=1 in Leaf. This is a
// forward-over-reverse Hessian-vector product: seeding one leaf's tangent
// and propagating it alongside the ordinary adjoint recovers that leaf's
// own second derivative (gamma, when the seed is spot) in the same sweep
// that produces every other first-order partial.
func (t *Tape) Gradient(root Var) []jet1 {
	adj := make([]jet1, len(t.nodes))
	adj[root.id] = jet1{1, 0}
	for i := len(t.nodes) - 1; i >= 0; i-- {
		n := t.nodes[i]
		a := adj[i]
		if a.v == 0 && a.d == 0 {
			continue
		}
		for k := 0; k < n.nParents; k++ {
			p := n.parents[k]
			adj[p] = adj[p].add(n.local[k].mul(a))
		}
	}
	return adj
}

// At returns the (value, tangent) pair Gradient computed for the leaf or
// intermediate Var v: first and (when v's tape was seeded on it) second
// derivative of the sweep's root with respect to v.
func At(adj []jet1, v Var) (first, second float64) {
	j := adj[v.id]
	return j.v, j.d
}
