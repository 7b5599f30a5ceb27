package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shataken-source/cevict-live-sub025/core"
)

// Memory implements Store in process, with the same insert-or-skip conflict
// semantics as the Postgres implementation. It backs tests and simulated
// runs that have no database.
type Memory struct {
	mu          sync.Mutex
	predictions map[string]core.Prediction // natural key -> prediction
	quotes      map[string]core.MarketQuote
	bets        map[string]core.ExecutedBet // idempotency key -> bet
	archived    map[string]bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		predictions: make(map[string]core.Prediction),
		quotes:      make(map[string]core.MarketQuote),
		bets:        make(map[string]core.ExecutedBet),
		archived:    make(map[string]bool),
	}
}

func (s *Memory) UpsertPrediction(ctx context.Context, p *core.Prediction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := p.NaturalKey()
	if _, exists := s.predictions[key]; exists {
		return false, nil
	}
	stored := *p
	if stored.MatchStatus == "" {
		stored.MatchStatus = core.MatchUnmatched
	}
	s.predictions[key] = stored
	return true, nil
}

func (s *Memory) ListUnmatchedPredictions(ctx context.Context) ([]core.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var preds []core.Prediction
	for _, p := range s.predictions {
		if p.MatchStatus == core.MatchUnmatched {
			preds = append(preds, p)
		}
	}
	sort.Slice(preds, func(i, j int) bool {
		return preds[i].CreatedAt.Before(preds[j].CreatedAt)
	})
	return preds, nil
}

func (s *Memory) MarkMatched(ctx context.Context, naturalKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.predictions[naturalKey]
	if !ok {
		return nil
	}
	p.MatchStatus = core.MatchMatched
	s.predictions[naturalKey] = p
	return nil
}

func (s *Memory) SaveQuotes(ctx context.Context, quotes []core.MarketQuote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range quotes {
		s.quotes[q.Ticker] = q
	}
	return nil
}

func (s *Memory) InsertExecutedBet(ctx context.Context, bet *core.ExecutedBet) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bets[bet.IdempotencyKey]; exists {
		return false, nil
	}
	s.bets[bet.IdempotencyKey] = *bet
	return true, nil
}

func (s *Memory) UpdateExecutedBet(ctx context.Context, bet *core.ExecutedBet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.bets[bet.IdempotencyKey]
	if !ok {
		return nil
	}
	existing.VenueOrderID = bet.VenueOrderID
	existing.Status = bet.Status
	existing.ActualStakeCents = bet.ActualStakeCents
	existing.ActualContracts = bet.ActualContracts
	s.bets[bet.IdempotencyKey] = existing
	return nil
}

func (s *Memory) GetExecutedBet(ctx context.Context, idempotencyKey string) (*core.ExecutedBet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bet, ok := s.bets[idempotencyKey]
	if !ok {
		return nil, nil
	}
	return &bet, nil
}

func (s *Memory) ListExecutedBets(ctx context.Context, since time.Time) ([]core.ExecutedBet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bets []core.ExecutedBet
	for _, b := range s.bets {
		if !b.PlacedAt.Before(since) {
			bets = append(bets, b)
		}
	}
	sort.Slice(bets, func(i, j int) bool {
		return bets[i].PlacedAt.Before(bets[j].PlacedAt)
	})
	return bets, nil
}

func (s *Memory) IsImportArchived(ctx context.Context, artifact string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archived[artifact], nil
}

func (s *Memory) MarkImportArchived(ctx context.Context, artifact string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.archived[artifact] {
		return false, nil
	}
	s.archived[artifact] = true
	return true, nil
}

// QuoteCount reports how many quote snapshots are stored.
func (s *Memory) QuoteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quotes)
}
