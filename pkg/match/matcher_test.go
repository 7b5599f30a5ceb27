package match

import (
	"errors"
	"testing"
	"time"

	"github.com/shataken-source/cevict-live-sub025/core"
)

func quote(ticker, title string, priceCents int64) core.MarketQuote {
	return core.MarketQuote{
		Ticker:     ticker,
		Title:      title,
		Side:       core.SideYes,
		PriceCents: priceCents,
		Volume:     1000,
		ExpiresAt:  time.Now().Add(24 * time.Hour),
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Kansas City Chiefs", "kansas city chiefs"},
		{"Manchester United FC", "manchester"},
		{"Atlético Madrid", "atletico madrid"},
		{"St. Louis Blues", "st louis blues"},
		{"  Tottenham   Hotspur ", "tottenham"},
		{"Brighton & Hove Albion", "brighton hove"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher(nil)

	pred := &core.Prediction{
		GameID:      "nfl-2026-001",
		League:      "nfl",
		HomeTeam:    "Kansas City Chiefs",
		AwayTeam:    "Buffalo Bills",
		Pick:        "Kansas City Chiefs",
		Probability: 0.62,
	}

	t.Run("straight orientation", func(t *testing.T) {
		quotes := []core.MarketQuote{
			quote("NFL-KC-BUF", "Kansas City Chiefs vs Buffalo Bills", 58),
		}
		b, err := m.Match(pred, quotes)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.Ticker != "NFL-KC-BUF" || b.Side != core.SideYes || b.PriceCents != 58 {
			t.Errorf("binding = %+v", b)
		}
	})

	t.Run("flipped orientation", func(t *testing.T) {
		quotes := []core.MarketQuote{
			quote("NFL-BUF-KC", "Buffalo Bills vs Kansas City Chiefs", 42),
		}
		b, err := m.Match(pred, quotes)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Market is written on Buffalo; picking Kansas City buys the no side.
		if b.Side != core.SideNo {
			t.Errorf("Side = %s, want no", b.Side)
		}
		if b.PriceCents != 58 {
			t.Errorf("PriceCents = %d, want complement 58", b.PriceCents)
		}
	})

	t.Run("at-style title", func(t *testing.T) {
		quotes := []core.MarketQuote{
			quote("NFL-BUF-AT-KC", "Buffalo Bills at Kansas City Chiefs", 45),
		}
		b, err := m.Match(pred, quotes)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.Side != core.SideNo {
			t.Errorf("Side = %s, want no (pick is second-listed)", b.Side)
		}
	})

	t.Run("single subject title", func(t *testing.T) {
		quotes := []core.MarketQuote{
			quote("NFL-KCWIN", "Will the Kansas City Chiefs win?", 60),
		}
		b, err := m.Match(pred, quotes)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.Side != core.SideYes || b.PriceCents != 60 {
			t.Errorf("binding = %+v", b)
		}
	})

	t.Run("city-only listing", func(t *testing.T) {
		quotes := []core.MarketQuote{
			quote("NFL-KC-BUF2", "Kansas City vs Buffalo", 58),
		}
		b, err := m.Match(pred, quotes)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.Side != core.SideYes {
			t.Errorf("Side = %s, want yes", b.Side)
		}
	})

	t.Run("unmatched stays explicit", func(t *testing.T) {
		quotes := []core.MarketQuote{
			quote("NBA-LAL-BOS", "Los Angeles Lakers vs Boston Celtics", 50),
		}
		_, err := m.Match(pred, quotes)
		if err == nil {
			t.Fatal("expected unmatched error")
		}
		var me *core.MatchError
		if !errors.As(err, &me) {
			t.Fatalf("expected MatchError, got %T", err)
		}
		if me.GameID != pred.GameID {
			t.Errorf("GameID = %s, want %s", me.GameID, pred.GameID)
		}
	})

	t.Run("missing team names", func(t *testing.T) {
		_, err := m.Match(&core.Prediction{GameID: "x"}, nil)
		var me *core.MatchError
		if !errors.As(err, &me) {
			t.Fatalf("expected MatchError, got %T", err)
		}
	})
}

func TestMatcher_OrderInsensitive(t *testing.T) {
	// A prediction for (home=A, away=B) must match a listing (B vs A).
	m := NewMatcher(nil)
	pred := &core.Prediction{
		GameID:   "epl-100",
		HomeTeam: "Arsenal",
		AwayTeam: "Chelsea FC",
		Pick:     "Chelsea FC",
	}
	for _, title := range []string{"Arsenal vs Chelsea", "Chelsea vs Arsenal"} {
		b, err := m.Match(pred, []core.MarketQuote{quote("EPL-ARS-CHE", title, 47)})
		if err != nil {
			t.Fatalf("title %q: unexpected error: %v", title, err)
		}
		if b == nil {
			t.Fatalf("title %q: no binding", title)
		}
	}
}
