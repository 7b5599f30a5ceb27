package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shataken-source/cevict-live-sub025/core"
)

func TestMemory_UpsertPredictionDedup(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	p := &core.Prediction{
		GameID:      "g1",
		League:      "nfl",
		HomeTeam:    "A",
		AwayTeam:    "B",
		Pick:        "A",
		Probability: 0.6,
		CreatedAt:   time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}

	inserted, err := s.UpsertPrediction(ctx, p)
	if err != nil || !inserted {
		t.Fatalf("first upsert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = s.UpsertPrediction(ctx, p)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if inserted {
		t.Error("second upsert of same natural key should not insert")
	}

	unmatched, err := s.ListUnmatchedPredictions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(unmatched) != 1 {
		t.Fatalf("unmatched = %d, want 1", len(unmatched))
	}

	if err := s.MarkMatched(ctx, p.NaturalKey()); err != nil {
		t.Fatalf("mark matched: %v", err)
	}
	unmatched, _ = s.ListUnmatchedPredictions(ctx)
	if len(unmatched) != 0 {
		t.Errorf("unmatched after match = %d, want 0", len(unmatched))
	}
}

func TestMemory_InsertExecutedBetIdempotent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	bet := &core.ExecutedBet{
		IdempotencyKey:   core.IdempotencyKey("NFL-KC-BUF", "g1", "A"),
		Ticker:           "NFL-KC-BUF",
		GameID:           "g1",
		Pick:             "A",
		Side:             core.SideYes,
		ActualStakeCents: 750,
		ActualContracts:  15,
		PriceCents:       50,
		Status:           core.BetOpen,
		PlacedAt:         time.Now(),
	}

	inserted, err := s.InsertExecutedBet(ctx, bet)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = s.InsertExecutedBet(ctx, bet)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Error("duplicate idempotency key should not insert")
	}

	got, err := s.GetExecutedBet(ctx, bet.IdempotencyKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.ActualStakeCents != 750 {
		t.Errorf("got = %+v", got)
	}
}

func TestMemory_InsertExecutedBetConcurrent(t *testing.T) {
	// The check-then-write must be atomic: 20 concurrent inserts of the
	// same key yield exactly one winner.
	s := NewMemory()
	ctx := context.Background()

	key := core.IdempotencyKey("T", "g", "p")
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := s.InsertExecutedBet(ctx, &core.ExecutedBet{
				IdempotencyKey: key,
				Status:         core.BetOpen,
				PlacedAt:       time.Now(),
			})
			if err != nil {
				t.Errorf("insert: %v", err)
				return
			}
			if inserted {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}

func TestMemory_UpdateExecutedBet(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	bet := &core.ExecutedBet{IdempotencyKey: "k", Status: core.BetOpen, PlacedAt: time.Now()}
	s.InsertExecutedBet(ctx, bet)

	bet.Status = core.BetFilled
	bet.VenueOrderID = "ord-1"
	if err := s.UpdateExecutedBet(ctx, bet); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := s.GetExecutedBet(ctx, "k")
	if got.Status != core.BetFilled || got.VenueOrderID != "ord-1" {
		t.Errorf("got = %+v", got)
	}
}

func TestMemory_ImportArchive(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	first, err := s.MarkImportArchived(ctx, "snapshot-2026-01-10.json")
	if err != nil || !first {
		t.Fatalf("first archive: %v %v", first, err)
	}
	second, _ := s.MarkImportArchived(ctx, "snapshot-2026-01-10.json")
	if second {
		t.Error("second archive of same artifact should report already archived")
	}
}
