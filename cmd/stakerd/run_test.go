package main

import (
	"context"
	"testing"
	"time"

	"github.com/shataken-source/cevict-live-sub025/core"
	"github.com/shataken-source/cevict-live-sub025/pkg/engine"
	"github.com/shataken-source/cevict-live-sub025/pkg/executor"
	"github.com/shataken-source/cevict-live-sub025/pkg/importer"
	"github.com/shataken-source/cevict-live-sub025/pkg/match"
	"github.com/shataken-source/cevict-live-sub025/pkg/metrics"
	"github.com/shataken-source/cevict-live-sub025/pkg/policy"
	"github.com/shataken-source/cevict-live-sub025/pkg/store"
	"github.com/shataken-source/cevict-live-sub025/pkg/venue"
)

func newTestDaemon(st store.Store, sim *venue.SimClient, limits *policy.Limits) *daemon {
	m := metrics.New()
	return &daemon{
		category:  "sports",
		store:     st,
		venue:     sim,
		importer:  importer.New(nil, nil, nil, st, m),
		matcher:   match.NewMatcher(nil),
		evaluator: engine.NewEvaluator(nil),
		sizer:     engine.NewSizer(nil),
		executor:  executor.New(nil, st, sim, policy.NewRunState(limits), m),
		metrics:   m,
		simulated: true,
	}
}

func seedCandidate(t *testing.T, st store.Store, sim *venue.SimClient) core.Prediction {
	t.Helper()
	pred := core.Prediction{
		GameID:      "nfl-2026-wk1-kc-lv",
		League:      "nfl",
		HomeTeam:    "Kansas City Chiefs",
		AwayTeam:    "Las Vegas Raiders",
		Pick:        "Kansas City Chiefs",
		Probability: 0.62,
		Confidence:  0.70,
		CreatedAt:   time.Now().UTC(),
		MatchStatus: core.MatchUnmatched,
	}
	if _, err := st.UpsertPrediction(context.Background(), &pred); err != nil {
		t.Fatal(err)
	}
	sim.LoadQuotes([]core.MarketQuote{
		{
			Ticker:     "NFL-KC-LV",
			Title:      "Kansas City Chiefs vs Las Vegas Raiders",
			Side:       core.SideYes,
			PriceCents: 45,
			ExpiresAt:  time.Now().Add(24 * time.Hour),
		},
	})
	return pred
}

func TestRunOnce_DeferredCandidateRetriedNextRun(t *testing.T) {
	st := store.NewMemory()
	sim := venue.NewSimClient(100000)
	pred := seedCandidate(t, st, sim)
	key := core.IdempotencyKey("NFL-KC-LV", pred.GameID, pred.Pick)

	// First cycle runs on a duration budget that is already spent, so the
	// candidate defers instead of reaching the venue.
	spent := newTestDaemon(st, sim, &policy.Limits{
		MaxBetsPerRun:        25,
		MaxRunExposureCents:  50000,
		MaxPerIdentityPerRun: 1,
		MaxRunDuration:       time.Nanosecond,
	})
	spent.runOnce(context.Background())

	if spent.lastRun == nil || spent.lastRun.Batch == nil {
		t.Fatalf("no batch recorded: %+v", spent.lastRun)
	}
	if spent.lastRun.Batch.Deferred != 1 {
		t.Fatalf("deferred = %d, want 1", spent.lastRun.Batch.Deferred)
	}
	if sim.OrderCount() != 0 {
		t.Fatalf("venue orders = %d, want 0", sim.OrderCount())
	}
	if bet, err := st.GetExecutedBet(context.Background(), key); err != nil || bet != nil {
		t.Fatalf("deferred candidate wrote a bet row: bet=%v err=%v", bet, err)
	}

	// The prediction must still be unmatched so the next cycle rebuilds it.
	pending, err := st.ListUnmatchedPredictions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("unmatched predictions = %d, want 1 after deferral", len(pending))
	}

	// Second cycle on the same store with a fresh budget places the bet.
	fresh := newTestDaemon(st, sim, nil)
	fresh.runOnce(context.Background())

	bet, err := st.GetExecutedBet(context.Background(), key)
	if err != nil || bet == nil {
		t.Fatalf("GetExecutedBet: bet=%v err=%v", bet, err)
	}
	if bet.Status != core.BetFilled {
		t.Errorf("status = %s, want %s", bet.Status, core.BetFilled)
	}
	if sim.OrderCount() != 1 {
		t.Fatalf("venue orders = %d, want 1", sim.OrderCount())
	}

	pending, err = st.ListUnmatchedPredictions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("unmatched predictions = %d, want 0 after fill", len(pending))
	}
}

func TestRunOnce_SubmittedCandidateMarkedMatched(t *testing.T) {
	st := store.NewMemory()
	sim := venue.NewSimClient(100000)
	seedCandidate(t, st, sim)

	d := newTestDaemon(st, sim, nil)
	d.runOnce(context.Background())

	if d.lastRun == nil || d.lastRun.Batch == nil || d.lastRun.Batch.Submitted != 1 {
		t.Fatalf("batch = %+v, want one submission", d.lastRun)
	}

	pending, err := st.ListUnmatchedPredictions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("unmatched predictions = %d, want 0 once the bet landed", len(pending))
	}
}
