package venue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shataken-source/cevict-live-sub025/core"
)

// SimClient is an in-process venue used when credentials are absent or in
// tests. It computes and records intended orders without financial exposure:
// every accepted order fills immediately at its limit price against the
// simulated balance.
type SimClient struct {
	mu           sync.Mutex
	balanceCents int64
	quotes       []core.MarketQuote
	orders       map[string]*OrderRequest // orderID -> request

	// FailTickers makes SubmitOrder reject the named tickers; tests use it
	// to exercise per-candidate failure isolation.
	FailTickers map[string]bool
}

// NewSimClient creates a simulated venue with the given starting balance.
func NewSimClient(balanceCents int64) *SimClient {
	return &SimClient{
		balanceCents: balanceCents,
		orders:       make(map[string]*OrderRequest),
		FailTickers:  make(map[string]bool),
	}
}

// LoadQuotes replaces the simulated open-market listing.
func (s *SimClient) LoadQuotes(quotes []core.MarketQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes = append([]core.MarketQuote(nil), quotes...)
}

// ListOpenMarkets returns the loaded quotes, filtered by expiry.
func (s *SimClient) ListOpenMarkets(ctx context.Context, category string) ([]core.MarketQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	open := make([]core.MarketQuote, 0, len(s.quotes))
	for _, q := range s.quotes {
		if q.ExpiresAt.IsZero() || q.ExpiresAt.After(now) {
			open = append(open, q)
		}
	}
	return open, nil
}

// SubmitOrder fills the order at its limit price, debiting the balance.
func (s *SimClient) SubmitOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error) {
	if req.Contracts <= 0 {
		return nil, core.NewDataError("count", "contracts must be positive, got %d", req.Contracts)
	}
	if req.LimitPriceCents < 1 || req.LimitPriceCents > 99 {
		return nil, core.NewDataError("limit_price_cents", "price %d outside [1,99]", req.LimitPriceCents)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailTickers[req.Ticker] {
		return nil, &core.VenueError{Op: "submit_order", Status: 503, Err: errRejected}
	}

	cost := req.Contracts * req.LimitPriceCents
	if cost > s.balanceCents {
		return nil, &core.VenueError{Op: "submit_order", Status: 400, Err: errInsufficientBalance}
	}
	s.balanceCents -= cost

	id := "sim-" + uuid.New().String()
	s.orders[id] = req
	return &OrderResult{OrderID: id, Status: "filled"}, nil
}

// GetBalanceCents returns the simulated balance.
func (s *SimClient) GetBalanceCents(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balanceCents, nil
}

// OrderCount returns how many orders the simulator accepted.
func (s *SimClient) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

var (
	errRejected            = errString("order rejected by simulated venue")
	errInsufficientBalance = errString("insufficient balance")
)

type errString string

func (e errString) Error() string { return string(e) }
