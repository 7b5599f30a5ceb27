// Package executor turns evaluated candidates into venue orders. One run
// processes a batch: select, size, persist, submit. The durable bet record
// is written before the order goes out, guarded by the idempotency key, so
// a crash or retry can never double-submit.
package executor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shataken-source/cevict-live-sub025/core"
	"github.com/shataken-source/cevict-live-sub025/pkg/engine"
	"github.com/shataken-source/cevict-live-sub025/pkg/metrics"
	"github.com/shataken-source/cevict-live-sub025/pkg/policy"
	"github.com/shataken-source/cevict-live-sub025/pkg/store"
	"github.com/shataken-source/cevict-live-sub025/pkg/venue"
)

// Config configures batch execution.
type Config struct {
	Workers           int     // concurrent submissions, default 4
	AutoMinEdgePct    float64 // auto-select floor on evaluated edge
	AutoMinConfidence float64 // auto-select floor on model confidence
	MinStakeCents     int64   // floor applied to manual override stakes
}

// DefaultConfig returns the default execution parameters.
func DefaultConfig() *Config {
	return &Config{
		Workers:           4,
		AutoMinEdgePct:    3.0,
		AutoMinConfidence: 0.52,
		MinStakeCents:     100,
	}
}

// Disposition is the terminal state of one candidate within a run.
type Disposition string

const (
	DispositionSubmitted Disposition = "submitted"
	DispositionSkipped   Disposition = "skipped"
	DispositionErrored   Disposition = "errored"
	DispositionDeferred  Disposition = "deferred"
)

// CandidateResult records what happened to one candidate.
type CandidateResult struct {
	IdempotencyKey string      `json:"idempotency_key"`
	Ticker         string      `json:"ticker"`
	Disposition    Disposition `json:"disposition"`
	Reason         string      `json:"reason,omitempty"`
	StakeCents     int64       `json:"stake_cents,omitempty"`
	Contracts      int64       `json:"contracts,omitempty"`
	VenueOrderID   string      `json:"venue_order_id,omitempty"`
}

// BatchResult summarizes one execution run.
type BatchResult struct {
	Submitted int               `json:"submitted"`
	Skipped   int               `json:"skipped"`
	Errored   int               `json:"errored"`
	Deferred  int               `json:"deferred"`
	Results   []CandidateResult `json:"results"`
}

// Executor runs candidate batches against the venue.
type Executor struct {
	config  *Config
	store   store.Store
	venue   venue.Client
	run     *policy.RunState
	metrics *metrics.EngineMetrics
}

// New creates a batch executor. Metrics may be nil.
func New(config *Config, st store.Store, client venue.Client, run *policy.RunState, m *metrics.EngineMetrics) *Executor {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	if run == nil {
		run = policy.NewRunState(nil)
	}
	return &Executor{
		config:  config,
		store:   st,
		venue:   client,
		run:     run,
		metrics: m,
	}
}

// Run executes one batch. Overrides maps an idempotency key to a manual
// stake in cents; an override selects the candidate regardless of edge and
// replaces the suggested stake (clamped to the stake floor). Every candidate
// gets a terminal disposition; a venue failure on one never aborts the rest.
func (e *Executor) Run(ctx context.Context, candidates []core.MatchedCandidate, overrides map[string]int64) (*BatchResult, error) {
	start := time.Now()
	e.run.BeginRun(start)

	selected := e.selectCandidates(candidates, overrides)
	log.Printf("[executor] run start: %d candidates, %d selected, %d overrides",
		len(candidates), len(selected), len(overrides))

	results := make([]CandidateResult, len(selected))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.config.Workers)
	for i := range selected {
		wg.Add(1)
		// Acquire before spawning so head-of-batch candidates get priority
		// under the run budget; Workers=1 processes the batch in order.
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.execute(ctx, &selected[i])
		}(i)
	}
	wg.Wait()

	batch := &BatchResult{Results: results}
	for _, r := range results {
		switch r.Disposition {
		case DispositionSubmitted:
			batch.Submitted++
		case DispositionSkipped:
			batch.Skipped++
		case DispositionErrored:
			batch.Errored++
		case DispositionDeferred:
			batch.Deferred++
		}
		if e.metrics != nil {
			e.metrics.BetsTotal.WithLabelValues(string(r.Disposition)).Inc()
		}
	}
	if e.metrics != nil {
		e.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}
	log.Printf("[executor] run done in %s: submitted=%d skipped=%d errored=%d deferred=%d",
		time.Since(start).Round(time.Millisecond),
		batch.Submitted, batch.Skipped, batch.Errored, batch.Deferred)
	return batch, nil
}

// selectCandidates applies auto-selection and manual overrides. An override
// stake replaces the suggested stake and is clamped up to the floor; the
// contract count is re-derived from the overridden stake.
func (e *Executor) selectCandidates(candidates []core.MatchedCandidate, overrides map[string]int64) []core.MatchedCandidate {
	var selected []core.MatchedCandidate
	for _, c := range candidates {
		if stake, ok := overrides[c.IdempotencyKey]; ok {
			if stake < e.config.MinStakeCents {
				stake = e.config.MinStakeCents
			}
			c.SuggestedStakeCents = stake
			c.SuggestedContracts = engine.ContractsFor(stake, c.PriceCents)
			selected = append(selected, c)
			continue
		}
		if c.EdgePct < e.config.AutoMinEdgePct {
			continue
		}
		if c.Prediction.Confidence > 0 && c.Prediction.Confidence < e.config.AutoMinConfidence {
			continue
		}
		if c.SuggestedStakeCents <= 0 {
			continue
		}
		c.SuggestedContracts = engine.ContractsFor(c.SuggestedStakeCents, c.PriceCents)
		selected = append(selected, c)
	}
	return selected
}

func (e *Executor) execute(ctx context.Context, c *core.MatchedCandidate) CandidateResult {
	res := CandidateResult{
		IdempotencyKey: c.IdempotencyKey,
		Ticker:         c.Ticker,
		StakeCents:     c.SuggestedStakeCents,
		Contracts:      c.SuggestedContracts,
	}

	if e.run.Expired(time.Now()) || ctx.Err() != nil {
		res.Disposition = DispositionDeferred
		res.Reason = "run duration budget spent"
		return res
	}
	// Reserve atomically so parallel workers cannot collectively blow the
	// run limits. Candidates the limits refuse roll over to the next run.
	if err := e.run.Reserve(c.IdempotencyKey, c.SuggestedStakeCents); err != nil {
		res.Disposition = DispositionDeferred
		res.Reason = "run limits: " + err.Error()
		return res
	}

	bet := &core.ExecutedBet{
		IdempotencyKey:   c.IdempotencyKey,
		Ticker:           c.Ticker,
		GameID:           c.Prediction.GameID,
		Pick:             c.Prediction.Pick,
		Side:             c.Side,
		ActualStakeCents: c.SuggestedStakeCents,
		ActualContracts:  c.SuggestedContracts,
		PriceCents:       c.PriceCents,
		Status:           core.BetOpen,
		EdgePct:          c.EdgePct,
		Confidence:       c.Prediction.Confidence,
		PlacedAt:         time.Now().UTC(),
	}

	// Persist before submitting. The uniqueness constraint on the
	// idempotency key is the dedup mechanism; a lost race here means
	// another run already owns this bet.
	inserted, err := e.store.InsertExecutedBet(ctx, bet)
	if err != nil {
		e.run.Release(c.IdempotencyKey, c.SuggestedStakeCents)
		res.Disposition = DispositionErrored
		res.Reason = "persist bet: " + err.Error()
		return res
	}
	if !inserted {
		e.run.Release(c.IdempotencyKey, c.SuggestedStakeCents)
		res.Disposition = DispositionSkipped
		res.Reason = "duplicate: bet already placed for " + c.IdempotencyKey
		return res
	}

	order := &venue.OrderRequest{
		Ticker:          c.Ticker,
		Side:            c.Side,
		Contracts:       c.SuggestedContracts,
		LimitPriceCents: c.PriceCents,
		ClientOrderID:   c.IdempotencyKey,
	}

	submitStart := time.Now()
	ack, err := e.venue.SubmitOrder(ctx, order)
	if e.metrics != nil {
		e.metrics.VenueLatency.Observe(time.Since(submitStart).Seconds())
	}
	if err != nil {
		e.run.Release(c.IdempotencyKey, c.SuggestedStakeCents)
		bet.Status = core.BetRejected
		if updateErr := e.store.UpdateExecutedBet(ctx, bet); updateErr != nil {
			log.Printf("[executor] mark rejected %s: %v", c.IdempotencyKey, updateErr)
		}
		res.Disposition = DispositionErrored
		res.Reason = "submit order: " + err.Error()
		return res
	}

	bet.VenueOrderID = ack.OrderID
	bet.Status = core.BetFilled
	if err := e.store.UpdateExecutedBet(ctx, bet); err != nil {
		log.Printf("[executor] record fill %s: %v", c.IdempotencyKey, err)
	}

	if e.metrics != nil {
		e.metrics.StakeCents.Observe(float64(c.SuggestedStakeCents))
	}
	log.Printf("[executor] placed %s %s x%d @ %d cents (stake %d, edge %.2f%%, confidence %.2f)",
		c.Ticker, c.Side, c.SuggestedContracts, c.PriceCents,
		c.SuggestedStakeCents, c.EdgePct, c.Prediction.Confidence)

	res.Disposition = DispositionSubmitted
	res.VenueOrderID = ack.OrderID
	return res
}
