package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shataken-source/cevict-live-sub025/core"
	"github.com/shataken-source/cevict-live-sub025/pkg/policy"
	"github.com/shataken-source/cevict-live-sub025/pkg/store"
	"github.com/shataken-source/cevict-live-sub025/pkg/venue"
)

func candidate(gameID, ticker string, edgePct, confidence float64, stakeCents int64) core.MatchedCandidate {
	priceCents := int64(50)
	return core.MatchedCandidate{
		Prediction: core.Prediction{
			GameID:      gameID,
			League:      "nfl",
			Pick:        "chiefs",
			Probability: 0.60,
			Confidence:  confidence,
			CreatedAt:   time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		Ticker:              ticker,
		Side:                core.SideYes,
		PriceCents:          priceCents,
		EdgePct:             edgePct,
		SuggestedStakeCents: stakeCents,
		SuggestedContracts:  stakeCents / priceCents,
		IdempotencyKey:      core.IdempotencyKey(ticker, gameID, "chiefs"),
	}
}

func TestRun_AutoSelection(t *testing.T) {
	st := store.NewMemory()
	sim := venue.NewSimClient(100000)
	exec := New(nil, st, sim, policy.NewRunState(nil), nil)

	candidates := []core.MatchedCandidate{
		candidate("g1", "NFL-KC-T1", 5.0, 0.70, 1000), // clears both floors
		candidate("g2", "NFL-KC-T2", 1.0, 0.70, 1000), // edge too thin
		candidate("g3", "NFL-KC-T3", 5.0, 0.40, 1000), // confidence too low
	}

	result, err := exec.Run(context.Background(), candidates, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Submitted != 1 {
		t.Fatalf("submitted = %d, want 1", result.Submitted)
	}
	if sim.OrderCount() != 1 {
		t.Fatalf("venue orders = %d, want 1", sim.OrderCount())
	}

	bet, err := st.GetExecutedBet(context.Background(), candidates[0].IdempotencyKey)
	if err != nil || bet == nil {
		t.Fatalf("GetExecutedBet: bet=%v err=%v", bet, err)
	}
	if bet.Status != core.BetFilled {
		t.Errorf("status = %s, want %s", bet.Status, core.BetFilled)
	}
	if bet.VenueOrderID == "" {
		t.Error("venue order id not recorded")
	}
}

func TestRun_DuplicateSkipped(t *testing.T) {
	st := store.NewMemory()
	sim := venue.NewSimClient(100000)
	exec := New(nil, st, sim, policy.NewRunState(nil), nil)

	batch := []core.MatchedCandidate{candidate("g1", "NFL-KC-T1", 5.0, 0.70, 1000)}

	first, err := exec.Run(context.Background(), batch, nil)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Submitted != 1 {
		t.Fatalf("first run submitted = %d, want 1", first.Submitted)
	}

	second, err := exec.Run(context.Background(), batch, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Submitted != 0 || second.Skipped != 1 {
		t.Fatalf("second run submitted=%d skipped=%d, want 0/1", second.Submitted, second.Skipped)
	}
	if sim.OrderCount() != 1 {
		t.Fatalf("venue orders = %d, want 1 after replay", sim.OrderCount())
	}
}

func TestRun_OverrideClampedToFloor(t *testing.T) {
	st := store.NewMemory()
	sim := venue.NewSimClient(100000)
	exec := New(nil, st, sim, policy.NewRunState(nil), nil)

	// Edge below the auto floor: only reachable through the override.
	c := candidate("g1", "NFL-KC-T1", 1.0, 0.70, 1000)
	overrides := map[string]int64{c.IdempotencyKey: 25} // below the $1 floor

	result, err := exec.Run(context.Background(), []core.MatchedCandidate{c}, overrides)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Submitted != 1 {
		t.Fatalf("submitted = %d, want 1", result.Submitted)
	}
	bet, err := st.GetExecutedBet(context.Background(), c.IdempotencyKey)
	if err != nil || bet == nil {
		t.Fatalf("GetExecutedBet: bet=%v err=%v", bet, err)
	}
	if bet.ActualStakeCents != 100 {
		t.Errorf("stake = %d, want clamped to 100", bet.ActualStakeCents)
	}
	if bet.ActualContracts != 2 {
		t.Errorf("contracts = %d, want 2 at 50 cents", bet.ActualContracts)
	}
}

func TestRun_VenueFailureIsolated(t *testing.T) {
	st := store.NewMemory()
	sim := venue.NewSimClient(100000)
	sim.FailTickers["NFL-KC-BAD"] = true
	exec := New(nil, st, sim, policy.NewRunState(nil), nil)

	candidates := []core.MatchedCandidate{
		candidate("g1", "NFL-KC-BAD", 5.0, 0.70, 1000),
		candidate("g2", "NFL-KC-OK", 5.0, 0.70, 1000),
	}

	result, err := exec.Run(context.Background(), candidates, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Submitted != 1 || result.Errored != 1 {
		t.Fatalf("submitted=%d errored=%d, want 1/1", result.Submitted, result.Errored)
	}

	bad, err := st.GetExecutedBet(context.Background(), candidates[0].IdempotencyKey)
	if err != nil || bad == nil {
		t.Fatalf("GetExecutedBet: bet=%v err=%v", bad, err)
	}
	if bad.Status != core.BetRejected {
		t.Errorf("failed bet status = %s, want %s", bad.Status, core.BetRejected)
	}
}

func TestRun_PolicyLimitsDefer(t *testing.T) {
	st := store.NewMemory()
	sim := venue.NewSimClient(100000)
	run := policy.NewRunState(&policy.Limits{
		MaxBetsPerRun:        1,
		MaxRunExposureCents:  50000,
		MaxPerIdentityPerRun: 1,
		MaxRunDuration:       time.Minute,
	})
	config := DefaultConfig()
	config.Workers = 1 // deterministic ordering for the limit check
	exec := New(config, st, sim, run, nil)

	candidates := []core.MatchedCandidate{
		candidate("g1", "NFL-KC-T1", 5.0, 0.70, 1000),
		candidate("g2", "NFL-KC-T2", 5.0, 0.70, 1000),
	}

	result, err := exec.Run(context.Background(), candidates, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Limit-refused candidates defer so the next run can retry them.
	if result.Submitted != 1 || result.Deferred != 1 {
		t.Fatalf("submitted=%d deferred=%d, want 1/1", result.Submitted, result.Deferred)
	}

	deferred, err := st.GetExecutedBet(context.Background(), candidates[1].IdempotencyKey)
	if err != nil {
		t.Fatal(err)
	}
	if deferred != nil {
		t.Errorf("deferred candidate wrote a bet row: %+v", deferred)
	}
}

func TestRun_ParallelWorkersRespectLimits(t *testing.T) {
	st := store.NewMemory()
	sim := venue.NewSimClient(1000000)
	run := policy.NewRunState(&policy.Limits{
		MaxBetsPerRun:        2,
		MaxRunExposureCents:  500000,
		MaxPerIdentityPerRun: 1,
		MaxRunDuration:       time.Minute,
	})
	config := DefaultConfig()
	config.Workers = 4
	exec := New(config, st, sim, run, nil)

	var candidates []core.MatchedCandidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates,
			candidate(fmt.Sprintf("g%d", i), fmt.Sprintf("NFL-KC-T%d", i), 5.0, 0.70, 1000))
	}

	result, err := exec.Run(context.Background(), candidates, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The reservation is atomic, so concurrent workers can never land more
	// bets than the run cap regardless of interleaving.
	if result.Submitted != 2 {
		t.Fatalf("submitted = %d, want exactly 2", result.Submitted)
	}
	if result.Deferred != 8 {
		t.Fatalf("deferred = %d, want 8", result.Deferred)
	}
	if sim.OrderCount() != 2 {
		t.Fatalf("venue orders = %d, want 2", sim.OrderCount())
	}
}

func TestRun_RecomputesContracts(t *testing.T) {
	st := store.NewMemory()
	sim := venue.NewSimClient(100000)
	exec := New(nil, st, sim, policy.NewRunState(nil), nil)

	// An upstream bug left the contract count at zero; the stake and price
	// are authoritative, so execution derives contracts from them.
	c := candidate("g1", "NFL-KC-T1", 5.0, 0.70, 1000)
	c.SuggestedContracts = 0

	result, err := exec.Run(context.Background(), []core.MatchedCandidate{c}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Submitted != 1 {
		t.Fatalf("submitted = %d, want 1", result.Submitted)
	}
	bet, err := st.GetExecutedBet(context.Background(), c.IdempotencyKey)
	if err != nil || bet == nil {
		t.Fatalf("GetExecutedBet: bet=%v err=%v", bet, err)
	}
	if bet.ActualContracts != 20 {
		t.Errorf("contracts = %d, want 20 for a 1000 cent stake at 50", bet.ActualContracts)
	}
}

func TestRun_ExpiredBudgetDefers(t *testing.T) {
	st := store.NewMemory()
	sim := venue.NewSimClient(100000)
	run := policy.NewRunState(&policy.Limits{
		MaxBetsPerRun:        25,
		MaxRunExposureCents:  50000,
		MaxPerIdentityPerRun: 1,
		MaxRunDuration:       time.Nanosecond, // expires immediately
	})
	exec := New(nil, st, sim, run, nil)

	result, err := exec.Run(context.Background(), []core.MatchedCandidate{
		candidate("g1", "NFL-KC-T1", 5.0, 0.70, 1000),
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Deferred != 1 {
		t.Fatalf("deferred = %d, want 1", result.Deferred)
	}
	if sim.OrderCount() != 0 {
		t.Fatalf("venue orders = %d, want 0", sim.OrderCount())
	}
}
