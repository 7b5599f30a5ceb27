// Package venue talks to the market venue: listing open markets, submitting
// orders and streaming quote updates. Authentication is a bearer credential
// supplied by configuration; when it is absent the caller degrades to the
// simulated client.
package venue

import (
	"context"
	"time"

	"github.com/shataken-source/cevict-live-sub025/core"
)

// Client is the venue contract the executor and importer depend on.
type Client interface {
	ListOpenMarkets(ctx context.Context, category string) ([]core.MarketQuote, error)
	SubmitOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error)
	GetBalanceCents(ctx context.Context) (int64, error)
}

// OrderRequest is a limit order for a number of binary contracts.
type OrderRequest struct {
	Ticker          string    `json:"ticker"`
	Side            core.Side `json:"side"`
	Contracts       int64     `json:"count"`
	LimitPriceCents int64     `json:"limit_price_cents"`
	ClientOrderID   string    `json:"client_order_id"`
}

// OrderResult is the venue's acknowledgement of a submitted order.
type OrderResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"` // "open", "filled", "rejected"
}

// marketPayload is the loosely-typed wire shape of a market listing. It is
// validated at this boundary and converted to core.MarketQuote before any
// probability math sees it.
type marketPayload struct {
	Ticker    string `json:"ticker"`
	Title     string `json:"title"`
	YesAsk    int64  `json:"yes_ask"`
	YesBid    int64  `json:"yes_bid"`
	NoBid     int64  `json:"no_bid"`
	Volume    int64  `json:"volume"`
	ExpiresAt string `json:"close_time"`
}

func (p *marketPayload) toQuote() (core.MarketQuote, error) {
	if p.Ticker == "" {
		return core.MarketQuote{}, core.NewDataError("ticker", "missing")
	}
	if p.YesAsk < 1 || p.YesAsk > 99 {
		return core.MarketQuote{}, core.NewDataError("yes_ask", "price %d outside [1,99]", p.YesAsk)
	}
	var expires time.Time
	if p.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, p.ExpiresAt)
		if err != nil {
			return core.MarketQuote{}, core.NewDataError("close_time", "bad timestamp %q", p.ExpiresAt)
		}
		expires = t
	}
	return core.MarketQuote{
		Ticker:      p.Ticker,
		Title:       p.Title,
		Side:        core.SideYes,
		PriceCents:  p.YesAsk,
		YesBidCents: p.YesBid,
		NoBidCents:  p.NoBid,
		Volume:      p.Volume,
		ExpiresAt:   expires,
	}, nil
}

// balancePayload is the wire shape of the balance endpoint.
type balancePayload struct {
	BalanceCents int64 `json:"balance"`
}
