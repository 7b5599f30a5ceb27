package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shataken-source/cevict-live-sub025/core"
	"github.com/shataken-source/cevict-live-sub025/pkg/store"
	"github.com/shataken-source/cevict-live-sub025/pkg/venue"
)

type stubSource struct {
	artifacts []Artifact
}

func (s *stubSource) Fetch(ctx context.Context) ([]Artifact, error) {
	return s.artifacts, nil
}

func prediction(gameID string, probability float64) core.Prediction {
	return core.Prediction{
		GameID:      gameID,
		League:      "nfl",
		HomeTeam:    "chiefs",
		AwayTeam:    "raiders",
		Pick:        "chiefs",
		Probability: probability,
		Confidence:  0.7,
		CreatedAt:   time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestRun_IngestAndArchive(t *testing.T) {
	st := store.NewMemory()
	sim := venue.NewSimClient(100000)
	sim.LoadQuotes([]core.MarketQuote{
		{Ticker: "NFL-KC-T1", Title: "Chiefs vs Raiders", Side: core.SideYes, PriceCents: 55,
			ExpiresAt: time.Now().Add(24 * time.Hour)},
	})
	source := &stubSource{artifacts: []Artifact{
		{Name: "batch-001.json", Predictions: []core.Prediction{
			prediction("g1", 0.65),
			prediction("g2", 0.58),
			prediction("bad", 1.5), // rejected at the boundary
		}},
	}}

	imp := New(&Config{Category: "nfl"}, source, sim, st, nil)
	summary, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.PredictionsInserted != 2 {
		t.Errorf("inserted = %d, want 2", summary.PredictionsInserted)
	}
	if summary.PredictionsRejected != 1 {
		t.Errorf("rejected = %d, want 1", summary.PredictionsRejected)
	}
	if summary.QuotesSaved != 1 {
		t.Errorf("quotes = %d, want 1", summary.QuotesSaved)
	}
	if summary.ArtifactsArchived != 1 {
		t.Errorf("archived = %d, want 1", summary.ArtifactsArchived)
	}

	pending, err := st.ListUnmatchedPredictions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("unmatched predictions = %d, want 2", len(pending))
	}
}

func TestRun_ArchivedArtifactSkipped(t *testing.T) {
	st := store.NewMemory()
	source := &stubSource{artifacts: []Artifact{
		{Name: "batch-001.json", Predictions: []core.Prediction{prediction("g1", 0.65)}},
	}}
	imp := New(nil, source, nil, st, nil)

	first, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.PredictionsInserted != 1 || first.ArtifactsArchived != 1 {
		t.Fatalf("first run = %+v", first)
	}

	// The archive check skips an already-processed artifact outright; its
	// predictions are not even re-upserted.
	second, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.ArtifactsSkipped != 1 {
		t.Errorf("skipped = %d, want 1", second.ArtifactsSkipped)
	}
	if second.PredictionsInserted != 0 || second.PredictionsDuplicate != 0 {
		t.Fatalf("second run re-ingested: %+v", second)
	}

	pending, err := st.ListUnmatchedPredictions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("unmatched predictions = %d, want exactly 1", len(pending))
	}
}

func TestRun_CrashReplayAbsorbedByUpsert(t *testing.T) {
	// A crash between the upserts and the archive mark leaves records in
	// the store but no archive row. The replay must dedupe on the natural
	// key and then archive normally.
	st := store.NewMemory()
	p := prediction("g1", 0.65)
	p.MatchStatus = core.MatchUnmatched
	if _, err := st.UpsertPrediction(context.Background(), &p); err != nil {
		t.Fatal(err)
	}

	source := &stubSource{artifacts: []Artifact{
		{Name: "batch-001.json", Predictions: []core.Prediction{prediction("g1", 0.65)}},
	}}
	imp := New(nil, source, nil, st, nil)

	summary, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.PredictionsInserted != 0 || summary.PredictionsDuplicate != 1 {
		t.Fatalf("replay run = %+v", summary)
	}
	if summary.ArtifactsArchived != 1 {
		t.Errorf("archived = %d, want 1", summary.ArtifactsArchived)
	}

	pending, err := st.ListUnmatchedPredictions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("unmatched predictions = %d, want exactly 1 after replay", len(pending))
	}
}

func TestValidatePrediction(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*core.Prediction)
	}{
		{"missing game id", func(p *core.Prediction) { p.GameID = "" }},
		{"missing pick", func(p *core.Prediction) { p.Pick = "" }},
		{"missing teams", func(p *core.Prediction) { p.HomeTeam = "" }},
		{"zero probability", func(p *core.Prediction) { p.Probability = 0 }},
		{"probability above one", func(p *core.Prediction) { p.Probability = 1.2 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := prediction("g1", 0.6)
			tc.mutate(&p)
			err := validatePrediction(&p)
			if err == nil {
				t.Fatal("expected DataError")
			}
			var dataErr *core.DataError
			if !errors.As(err, &dataErr) {
				t.Fatalf("error type = %T", err)
			}
		})
	}
}
