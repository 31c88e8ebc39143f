// Package facade erases the concrete pricing method behind one capability
// set (§4.5): a caller constructs solver<method, carrier> once over a
// market and applies it to instruments without observing whether CRR, QD+,
// or the closed-form kernel produced the numbers.
//
// This lives outside pkg/pricing because it imports both pkg/pricing/
// lattice and pkg/pricing/qdplus, each of which already imports pkg/pricing
// for MarketParams, Instrument and the error taxonomy; folding the facade
// into pkg/pricing itself would close that into an import cycle.
package facade

import (
	"fmt"

	"github.com/johnayoung/bsm-option-engine/pkg/pricing"
	"github.com/johnayoung/bsm-option-engine/pkg/pricing/lattice"
	"github.com/johnayoung/bsm-option-engine/pkg/pricing/qdplus"
)

// Method selects which engine a Solver delegates to.
type Method int

const (
	Analytical Method = iota
	CRR
	QDPlus
)

// Config is the method-specific construction parameter set. Carrier is
// read only when Method is Analytical; Lattice is read only when Method is
// CRR; QDPlus takes no extra parameters.
type Config struct {
	Method  Method
	Carrier pricing.Carrier
	Lattice lattice.Config
}

// Solver is constructed once over a market and method configuration, then
// applied to any number of instruments.
type Solver struct {
	mkt pricing.MarketParams
	cfg Config
}

// NewSolver validates cfg against its Method (CRR's lattice.Config is
// checked eagerly rather than deferred to the first Solve) and returns a
// Solver over mkt.
func NewSolver(mkt pricing.MarketParams, cfg Config) (*Solver, error) {
	if cfg.Method == CRR {
		if _, err := lattice.NewSolver(mkt, cfg.Lattice); err != nil {
			return nil, err
		}
	}
	return &Solver{mkt: mkt, cfg: cfg}, nil
}

// Solve applies the configured method to inst, returning a pricing.Handle
// (a pricing.AmericanHandle when inst is American and the method supports
// early exercise).
func (s *Solver) Solve(inst pricing.Instrument) (pricing.Handle, error) {
	switch s.cfg.Method {
	case Analytical:
		return pricing.NewAnalyticalSolver(s.mkt, s.cfg.Carrier).Solve(inst)
	case CRR:
		solver, err := lattice.NewSolver(s.mkt, s.cfg.Lattice)
		if err != nil {
			return nil, err
		}
		return solver.Solve(inst)
	case QDPlus:
		return qdplus.NewSolver(s.mkt).Solve(inst)
	default:
		return nil, fmt.Errorf("facade: unknown method %d: %w", s.cfg.Method, pricing.ErrUnsupportedInstrument)
	}
}
