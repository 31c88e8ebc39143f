// Package lattice implements the Cox–Ross–Rubinstein binomial engine: a
// two-tree construction (an underlying-spot lattice and a premium lattice
// carrying value/exercised pairs), backward induction with optional early
// exercise, greek extraction at an effective root, and American
// exercise-boundary reconstruction from the node-level exercise flags.
package lattice

import (
	"fmt"
	"math"
	"runtime"

	"github.com/johnayoung/bsm-option-engine/pkg/pricing"
	"golang.org/x/sync/errgroup"
)

// Config is the CRR-specific construction parameter set: a step count of
// at least 2 and an even, non-negative extra-step count used to shift the tree
// root earlier so the reported price and boundary correspond to index
// ExtraSteps rather than 0 — smoothing American boundary reconstruction
// near maturity.
type Config struct {
	Steps      int
	ExtraSteps int
}

// Solver prices both European and American payoffs over a fixed market by
// building a fresh CRR tree on each Solve call, plus one rebuilt tree per
// bumped parameter for vega, rho and psi. A Solver instance owns no
// mutable state across calls and is safe to apply to independent
// instruments concurrently.
type Solver struct {
	mkt pricing.MarketParams
	cfg Config
}

// NewSolver validates cfg and constructs a Solver over mkt.
func NewSolver(mkt pricing.MarketParams, cfg Config) (*Solver, error) {
	if cfg.Steps < 2 {
		return nil, fmt.Errorf("crr: steps must be >= 2 (greek extraction reads two rows past the effective root), got %d: %w", cfg.Steps, pricing.ErrNumericalDomain)
	}
	if cfg.ExtraSteps < 0 || cfg.ExtraSteps%2 != 0 {
		return nil, fmt.Errorf("crr: extra_steps must be even and >= 0, got %d: %w", cfg.ExtraSteps, pricing.ErrNumericalDomain)
	}
	return &Solver{mkt: mkt, cfg: cfg}, nil
}

// nodeV is one premium-lattice node: its discounted or exercised value,
// and whether immediate exercise dominated continuation there.
type nodeV struct {
	value     float64
	exercised bool
}

// tree is one fully built two-tree CRR lattice plus the derived boundary
// table and geometry, owned exclusively by the goroutine that built it.
type tree struct {
	U          [][]float64
	V          [][]nodeV
	boundary   []float64
	dt, u, d, p, disc float64
	steps, extraSteps, n int
}

// geometry computes u, d, p and the discount factor for one Δt, signalling
// LatticeInfeasible if the risk-neutral probability falls outside (0,1).
func geometry(sigma, r, q, dt float64) (u, d, p, disc float64, err error) {
	u = math.Exp(sigma * math.Sqrt(dt))
	d = 1 / u
	p = (math.Exp((r-q)*dt) - d) / (u - d)
	disc = math.Exp(-r * dt)
	if !(p > 0 && p < 1) {
		return 0, 0, 0, 0, fmt.Errorf("crr: risk-neutral probability p=%.6g outside (0,1): %w", p, pricing.ErrLatticeInfeasible)
	}
	return u, d, p, disc, nil
}

// parallelFor partitions [0,n) into contiguous chunks sized to available
// hardware concurrency and runs fn over each chunk concurrently — row t
// must fully complete before row t+1 begins, so this is only ever called
// within the construction of a single row, never across rows.
func parallelFor(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if lo >= n {
			break
		}
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				fn(i)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// build constructs the full N-step tree (N = steps + extraSteps) over pp
// and inst, running backward induction with early exercise enabled iff
// inst.Style is American.
func build(pp pricing.PricingParams, inst pricing.Instrument, cfg Config) (*tree, error) {
	steps, extraSteps := cfg.Steps, cfg.ExtraSteps
	n := steps + extraSteps
	dt := pp.Tau / float64(steps)

	u, d, p, disc, err := geometry(pp.Sigma, pp.R, pp.Q, dt)
	if err != nil {
		return nil, err
	}

	U := make([][]float64, n+1)
	for t := 0; t <= n; t++ {
		row := make([]float64, t+1)
		parallelFor(t+1, func(i int) {
			row[i] = pp.S * math.Pow(u, float64(t-i)) * math.Pow(d, float64(i))
		})
		U[t] = row
	}

	V := make([][]nodeV, n+1)
	boundary := make([]float64, n+1)
	admitEarlyExercise := inst.Style == pricing.American

	terminal := make([]nodeV, n+1)
	parallelFor(n+1, func(i int) {
		terminal[i] = nodeV{value: inst.Payoff.Payoff(U[n][i], pp.K), exercised: false}
	})
	V[n] = terminal
	boundary[n] = rowBoundary(inst.Payoff, U[n], terminal, pp.K, boundary, n, disc)

	for t := n - 1; t >= 0; t-- {
		row := make([]nodeV, t+1)
		next := V[t+1]
		parallelFor(t+1, func(i int) {
			continuation := disc * (p*next[i].value + (1-p)*next[i+1].value)
			intrinsic := inst.Payoff.Payoff(U[t][i], pp.K)
			if admitEarlyExercise && intrinsic > continuation {
				row[i] = nodeV{value: intrinsic, exercised: true}
			} else {
				row[i] = nodeV{value: continuation, exercised: false}
			}
		})
		V[t] = row
		boundary[t] = rowBoundary(inst.Payoff, U[t], row, pp.K, boundary, t, disc)
	}

	return &tree{
		U: U, V: V, boundary: boundary,
		dt: dt, u: u, d: d, p: p, disc: disc,
		steps: steps, extraSteps: extraSteps, n: n,
	}, nil
}

// rowBoundary implements §4.3.5's Basso–Nardon–Pianca weighted
// interpolation of the critical index at row t.
func rowBoundary(payoff pricing.PayoffKind, U []float64, V []nodeV, K float64, boundary []float64, t int, disc float64) float64 {
	b := -1
	switch payoff {
	case pricing.PutPayoff:
		for i := 0; i <= t; i++ {
			if V[i].exercised {
				b = i
				break
			}
		}
	case pricing.CallPayoff:
		for i := t; i >= 0; i-- {
			if V[i].exercised {
				b = i
				break
			}
		}
	default:
		return math.NaN()
	}

	if b == -1 {
		if t == len(boundary)-1 {
			return K
		}
		return boundary[t+1] * disc
	}

	var bPrime int
	if payoff == pricing.PutPayoff {
		bPrime = b - 1
	} else {
		bPrime = b + 1
	}
	if bPrime < 0 || bPrime > t {
		return U[b]
	}

	x, xPrime := U[b], U[bPrime]
	v, vPrime := V[b].value, V[bPrime].value
	den := vPrime - v + xPrime - x
	if den == 0 {
		return x
	}
	w1 := (vPrime - payoff.Payoff(xPrime, K)) / den
	w2 := (-v + payoff.Payoff(x, K)) / den
	return w1*x + w2*xPrime
}

// effectiveRoot is (t, i) of the node the reported price and greeks are
// anchored to.
func (tr *tree) effectiveRoot() (t, i int) {
	return tr.extraSteps, tr.extraSteps / 2
}

const bumpLog = 0.01 // exp(0.01); applied multiplicatively to bump vega/rho/psi inputs

func bump(v float64) float64 {
	if v == 0 {
		return 0.01
	}
	return v * math.Exp(bumpLog)
}

// priceAt rebuilds a tree over pp/inst/cfg and returns only the effective
// root's price, for use by bumped revaluation.
func priceAt(pp pricing.PricingParams, inst pricing.Instrument, cfg Config) (float64, error) {
	tr, err := build(pp, inst, cfg)
	if err != nil {
		return 0, err
	}
	t, i := tr.effectiveRoot()
	return tr.V[t][i].value, nil
}

type handle struct {
	pricing.Handle
	tr       *tree
	pp       pricing.PricingParams
	inst     pricing.Instrument
	tau      float64
}

// Solve builds the tree and returns a pricing.Handle (pricing.AmericanHandle
// for American instruments, exposing ExerciseBoundary).
func (s *Solver) Solve(inst pricing.Instrument) (pricing.Handle, error) {
	pp, err := pricing.DerivePricingParams(s.mkt, inst)
	if err != nil {
		return nil, err
	}
	if inst.Payoff == pricing.ForwardPayoff {
		return nil, fmt.Errorf("crr: forward payoff not supported: %w", pricing.ErrUnsupportedInstrument)
	}

	tr, err := build(pp, inst, s.cfg)
	if err != nil {
		return nil, err
	}

	t, i := tr.effectiveRoot()
	price := tr.V[t][i].value
	delta := (tr.V[t+1][i].value - tr.V[t+1][i+1].value) / (tr.U[t+1][i] - tr.U[t+1][i+1])

	d0 := (tr.V[t+2][i].value - tr.V[t+2][i+1].value) / (tr.U[t+2][i] - tr.U[t+2][i+1])
	d1 := (tr.V[t+2][i+1].value - tr.V[t+2][i+2].value) / (tr.U[t+2][i+1] - tr.U[t+2][i+2])
	gamma := (d0 - d1) / ((tr.U[t+2][i] - tr.U[t+2][i+2]) / 2)

	// Node (t+2, i+1) has the root's spot 2Δt later in calendar time, so
	// this quotient is already -∂V/∂τ, the sign every other engine reports.
	theta := (tr.V[t+2][i+1].value - tr.V[t][i].value) / (2 * tr.dt)

	bumpedSigma := pp
	bumpedSigma.Sigma = bump(pp.Sigma)
	pVega, err := priceAt(bumpedSigma, inst, s.cfg)
	if err != nil {
		return nil, err
	}
	vega := (pVega - price) / (bumpedSigma.Sigma - pp.Sigma)

	bumpedR := pp
	bumpedR.R = bump(pp.R)
	pRho, err := priceAt(bumpedR, inst, s.cfg)
	if err != nil {
		return nil, err
	}
	rho := (pRho - price) / (bumpedR.R - pp.R)

	bumpedQ := pp
	bumpedQ.Q = bump(pp.Q)
	pPsi, err := priceAt(bumpedQ, inst, s.cfg)
	if err != nil {
		return nil, err
	}
	psi := (pPsi - price) / (bumpedQ.Q - pp.Q)

	h := &handle{
		Handle: lat{price, delta, gamma, vega, theta, rho, psi},
		tr:     tr, pp: pp, inst: inst, tau: pp.Tau,
	}
	if inst.Style == pricing.American {
		return americanHandle{handle: h}, nil
	}
	return h, nil
}

// lat is the plain greeks struct for CRR handles.
type lat struct {
	price, delta, gamma, vega, theta, rho, psi float64
}

func (l lat) Price() float64 { return l.price }
func (l lat) Delta() float64 { return l.delta }
func (l lat) Gamma() float64 { return l.gamma }
func (l lat) Vega() float64  { return l.vega }
func (l lat) Theta() float64 { return l.theta }
func (l lat) Rho() float64   { return l.rho }
func (l lat) Psi() float64   { return l.psi }
func (l lat) Err() error     { return nil }

type americanHandle struct {
	*handle
}

// ExerciseBoundary implements pricing.AmericanHandle per §4.3.6.
func (h americanHandle) ExerciseBoundary(tauPrime float64) float64 {
	if tauPrime < 0 || tauPrime > h.tau {
		return math.NaN()
	}
	if tauPrime == 0 {
		return pricing.MaturityBoundary(h.inst.Payoff, h.inst.Strike, h.pp.R, h.pp.Q)
	}
	idxLocal := int(math.Round(float64(h.tr.steps) * (1 - tauPrime/h.tau)))
	row := h.tr.extraSteps + idxLocal
	if row < h.tr.extraSteps {
		row = h.tr.extraSteps
	}
	if row > h.tr.n {
		row = h.tr.n
	}
	return h.tr.boundary[row]
}
