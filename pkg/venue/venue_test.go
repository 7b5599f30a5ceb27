package venue

import (
	"context"
	"errors"
	"testing"

	"github.com/shataken-source/cevict-live-sub025/core"
)

func TestMarketPayloadValidation(t *testing.T) {
	cases := []struct {
		name    string
		payload marketPayload
		wantErr bool
	}{
		{
			name: "valid",
			payload: marketPayload{
				Ticker: "NFL-KC-T1", Title: "Chiefs vs Raiders",
				YesAsk: 55, NoBid: 44, Volume: 1200,
				ExpiresAt: "2026-01-12T00:00:00Z",
			},
		},
		{
			name:    "missing ticker",
			payload: marketPayload{YesAsk: 55},
			wantErr: true,
		},
		{
			name:    "price zero",
			payload: marketPayload{Ticker: "T", YesAsk: 0},
			wantErr: true,
		},
		{
			name:    "price hundred",
			payload: marketPayload{Ticker: "T", YesAsk: 100},
			wantErr: true,
		},
		{
			name:    "bad close time",
			payload: marketPayload{Ticker: "T", YesAsk: 55, ExpiresAt: "tomorrow"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := tc.payload.toQuote()
			if tc.wantErr {
				var dataErr *core.DataError
				if !errors.As(err, &dataErr) {
					t.Fatalf("err = %v, want DataError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("toQuote: %v", err)
			}
			if quote.PriceCents != 55 || quote.Side != core.SideYes {
				t.Errorf("quote = %+v", quote)
			}
		})
	}
}

func TestNewHTTPClient_MissingToken(t *testing.T) {
	_, err := NewHTTPClient("")
	var configErr *core.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
	if configErr.Key != "VENUE_API_TOKEN" {
		t.Errorf("key = %s", configErr.Key)
	}
}

func TestSimClient_FillAndBalance(t *testing.T) {
	sim := NewSimClient(10000)

	result, err := sim.SubmitOrder(context.Background(), &OrderRequest{
		Ticker: "NFL-KC-T1", Side: core.SideYes,
		Contracts: 15, LimitPriceCents: 50,
		ClientOrderID: "key-1",
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if result.OrderID == "" || result.Status != "filled" {
		t.Errorf("result = %+v", result)
	}

	balance, err := sim.GetBalanceCents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if balance != 10000-15*50 {
		t.Errorf("balance = %d, want %d", balance, 10000-15*50)
	}
}

func TestSimClient_Rejections(t *testing.T) {
	sim := NewSimClient(100)
	sim.FailTickers["DOWN"] = true

	_, err := sim.SubmitOrder(context.Background(), &OrderRequest{
		Ticker: "DOWN", Side: core.SideYes, Contracts: 1, LimitPriceCents: 50,
	})
	var venueErr *core.VenueError
	if !errors.As(err, &venueErr) {
		t.Fatalf("err = %v, want VenueError", err)
	}

	// Costs more than the 100-cent balance.
	_, err = sim.SubmitOrder(context.Background(), &OrderRequest{
		Ticker: "OK", Side: core.SideYes, Contracts: 10, LimitPriceCents: 50,
	})
	if !errors.As(err, &venueErr) {
		t.Fatalf("err = %v, want VenueError", err)
	}

	if sim.OrderCount() != 0 {
		t.Errorf("orders = %d, want 0", sim.OrderCount())
	}
}
