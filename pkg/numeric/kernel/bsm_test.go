package kernel_test

import (
	"testing"

	"github.com/johnayoung/bsm-option-engine/pkg/numeric"
	"github.com/johnayoung/bsm-option-engine/pkg/numeric/kernel"
	"github.com/stretchr/testify/require"
)

// TestEuropeanCallScenario1 checks scenario 1 from the testable-properties
// table: K=100, S=100, σ=0.20, τ=0.5, r=0.01, q=0.05.
func TestEuropeanCallScenario1(t *testing.T) {
	S, K := numeric.Plain(100), numeric.Plain(100)
	sigma, tau := numeric.Plain(0.20), numeric.Plain(0.5)
	r, q := numeric.Plain(0.01), numeric.Plain(0.05)

	price := kernel.EuropeanCall(S, K, sigma, tau, r, q)
	delta := kernel.Delta(kernel.Call, S, K, sigma, tau, r, q)

	require.InDelta(t, 4.62377, float64(price), 1e-4)
	require.InDelta(t, 0.460165, float64(delta), 1e-4)
}

// TestEuropeanPutScenario2 checks scenario 2: K=100, S=100, σ=0.20, τ=0.5,
// r=0.02, q=0.01.
func TestEuropeanPutScenario2(t *testing.T) {
	S, K := numeric.Plain(100), numeric.Plain(100)
	sigma, tau := numeric.Plain(0.20), numeric.Plain(0.5)
	r, q := numeric.Plain(0.02), numeric.Plain(0.01)

	price := kernel.EuropeanPut(S, K, sigma, tau, r, q)
	delta := kernel.Delta(kernel.Put, S, K, sigma, tau, r, q)
	gamma := kernel.Gamma(S, K, sigma, tau, r, q)

	require.InDelta(t, 5.3504528757, float64(price), 1e-6)
	require.InDelta(t, -0.4554818745, float64(delta), 1e-6)
	require.InDelta(t, 0.0279113405, float64(gamma), 1e-6)
}

// TestPutCallParity checks forward = call - put for a range of inputs.
func TestPutCallParity(t *testing.T) {
	cases := []struct{ S, K, sigma, tau, r, q float64 }{
		{100, 100, 0.2, 0.5, 0.01, 0.05},
		{120, 100, 0.35, 1.5, 0.03, 0.0},
		{80, 100, 0.15, 0.1, 0.0, 0.02},
	}
	for _, c := range cases {
		S, K := numeric.Plain(c.S), numeric.Plain(c.K)
		sigma, tau := numeric.Plain(c.sigma), numeric.Plain(c.tau)
		r, q := numeric.Plain(c.r), numeric.Plain(c.q)

		call := kernel.EuropeanCall(S, K, sigma, tau, r, q)
		put := kernel.EuropeanPut(S, K, sigma, tau, r, q)
		fwd := kernel.Forward(S, K, tau, r, q)

		require.InDelta(t, float64(fwd), float64(call)-float64(put), 1e-5)
	}
}

// TestCarriersAgree checks Plain, Dual and Var all price a European call
// to within 1e-10 of each other, and that Dual/Var first and second
// derivatives in S match the closed-form Delta (within 1e-9) and Gamma
// (within 1e-7) formulas.
func TestCarriersAgree(t *testing.T) {
	const Sv, Kv, sigmaV, tauV, rv, qv = 105.0, 100.0, 0.25, 0.75, 0.015, 0.0

	plainPrice := kernel.EuropeanCall(
		numeric.Plain(Sv), numeric.Plain(Kv), numeric.Plain(sigmaV),
		numeric.Plain(tauV), numeric.Plain(rv), numeric.Plain(qv),
	)

	dualS := numeric.Seed(Sv)
	dualPrice := kernel.EuropeanCall(
		dualS, numeric.Dual{}.Const(Kv), numeric.Dual{}.Const(sigmaV),
		numeric.Dual{}.Const(tauV), numeric.Dual{}.Const(rv), numeric.Dual{}.Const(qv),
	)

	tape := numeric.NewTape()
	varS := tape.Leaf(Sv, 1)
	varPrice := kernel.EuropeanCall(
		varS, varS.Const(Kv), varS.Const(sigmaV),
		varS.Const(tauV), varS.Const(rv), varS.Const(qv),
	)
	adj := tape.Gradient(varPrice)
	varDelta, varGamma := numeric.At(adj, varS)

	require.InDelta(t, float64(plainPrice), dualPrice.Val(), 1e-10)
	require.InDelta(t, float64(plainPrice), varPrice.Val(), 1e-10)

	closedDelta := kernel.Delta(kernel.Call, numeric.Plain(Sv), numeric.Plain(Kv),
		numeric.Plain(sigmaV), numeric.Plain(tauV), numeric.Plain(rv), numeric.Plain(qv))
	closedGamma := kernel.Gamma(numeric.Plain(Sv), numeric.Plain(Kv),
		numeric.Plain(sigmaV), numeric.Plain(tauV), numeric.Plain(rv), numeric.Plain(qv))

	require.InDelta(t, float64(closedDelta), dualPrice.D1(), 1e-9)
	require.InDelta(t, float64(closedDelta), varDelta, 1e-9)
	require.InDelta(t, float64(closedGamma), varGamma, 1e-7)
}
