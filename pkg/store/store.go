// Package store persists predictions, quotes and executed bets. The engine
// depends only on the Store contract: upsert-with-uniqueness on the bet
// idempotency key and on the prediction natural key. Conflict handling lives
// in the store, never as a read-then-insert in the caller, so correctness
// holds under concurrent retries.
package store

import (
	"context"
	"time"

	"github.com/shataken-source/cevict-live-sub025/core"
)

// Store is the durable-store contract.
type Store interface {
	// UpsertPrediction inserts a prediction keyed by its natural key.
	// Returns false when the key already existed (the record is left as
	// imported; re-runs never duplicate).
	UpsertPrediction(ctx context.Context, p *core.Prediction) (bool, error)

	// ListUnmatchedPredictions returns predictions awaiting a market bind,
	// oldest first.
	ListUnmatchedPredictions(ctx context.Context) ([]core.Prediction, error)

	// MarkMatched flips a prediction's match status.
	MarkMatched(ctx context.Context, naturalKey string) error

	// SaveQuotes upserts the latest market snapshot keyed by ticker.
	SaveQuotes(ctx context.Context, quotes []core.MarketQuote) error

	// InsertExecutedBet inserts a bet guarded by the uniqueness constraint
	// on idempotency_key. Returns false without error when a bet with the
	// same key already exists in the active settlement window.
	InsertExecutedBet(ctx context.Context, bet *core.ExecutedBet) (bool, error)

	// UpdateExecutedBet overwrites the mutable fields (status, order id)
	// of an existing bet.
	UpdateExecutedBet(ctx context.Context, bet *core.ExecutedBet) error

	// GetExecutedBet fetches a bet by idempotency key, nil when absent.
	GetExecutedBet(ctx context.Context, idempotencyKey string) (*core.ExecutedBet, error)

	// ListExecutedBets returns bets placed at or after the given time.
	ListExecutedBets(ctx context.Context, since time.Time) ([]core.ExecutedBet, error)

	// IsImportArchived reports whether a source artifact was already
	// processed and archived; importers skip such artifacts outright.
	IsImportArchived(ctx context.Context, artifact string) (bool, error)

	// MarkImportArchived records that a source artifact was processed.
	// Returns false when it was already archived, so re-runs skip it.
	MarkImportArchived(ctx context.Context, artifact string) (bool, error)
}
