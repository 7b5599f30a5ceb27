package main

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/shataken-source/cevict-live-sub025/core"
	"github.com/shataken-source/cevict-live-sub025/pkg/engine"
	"github.com/shataken-source/cevict-live-sub025/pkg/executor"
	"github.com/shataken-source/cevict-live-sub025/pkg/importer"
	"github.com/shataken-source/cevict-live-sub025/pkg/match"
	"github.com/shataken-source/cevict-live-sub025/pkg/metrics"
	"github.com/shataken-source/cevict-live-sub025/pkg/store"
	"github.com/shataken-source/cevict-live-sub025/pkg/venue"
)

// daemon wires the pipeline: import, match, evaluate, size, execute.
type daemon struct {
	category  string
	store     store.Store
	venue     venue.Client
	importer  *importer.Importer
	matcher   *match.Matcher
	evaluator *engine.Evaluator
	sizer     *engine.Sizer
	executor  *executor.Executor
	metrics   *metrics.EngineMetrics
	simulated bool

	mu      sync.Mutex
	lastRun *runStatus
}

type runStatus struct {
	StartedAt  time.Time             `json:"started_at"`
	Duration   string                `json:"duration"`
	Simulated  bool                  `json:"simulated"`
	Import     *importer.Summary     `json:"import,omitempty"`
	Candidates int                   `json:"candidates"`
	Unmatched  int                   `json:"unmatched"`
	Batch      *executor.BatchResult `json:"batch,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// runOnce executes one full batch cycle. Upstream failures are isolated per
// stage; the cycle always records a status for the /status endpoint.
func (d *daemon) runOnce(ctx context.Context) {
	start := time.Now()
	status := &runStatus{StartedAt: start.UTC(), Simulated: d.simulated}
	defer func() {
		status.Duration = time.Since(start).Round(time.Millisecond).String()
		d.mu.Lock()
		d.lastRun = status
		d.mu.Unlock()
	}()

	summary, err := d.importer.Run(ctx)
	status.Import = summary
	if err != nil {
		// Partial imports are fine; the stored backlog still gets matched.
		log.Printf("[stakerd] import degraded: %v", err)
	}

	candidates, unmatched, err := d.buildCandidates(ctx)
	status.Candidates = len(candidates)
	status.Unmatched = unmatched
	if err != nil {
		status.Error = err.Error()
		log.Printf("[stakerd] build candidates: %v", err)
		return
	}
	if len(candidates) == 0 {
		log.Printf("[stakerd] no actionable candidates this run (%d unmatched)", unmatched)
		return
	}

	batch, err := d.executor.Run(ctx, candidates, nil)
	status.Batch = batch
	if err != nil {
		status.Error = err.Error()
		log.Printf("[stakerd] execute batch: %v", err)
	}
	if batch != nil {
		d.settleMatches(ctx, candidates, batch)
	}
}

// settleMatches flips predictions to matched once their candidate reached a
// terminal disposition. Deferred candidates stay unmatched so the next
// scheduled run rebuilds and retries them.
func (d *daemon) settleMatches(ctx context.Context, candidates []core.MatchedCandidate, batch *executor.BatchResult) {
	naturalKeys := make(map[string]string, len(candidates))
	for i := range candidates {
		naturalKeys[candidates[i].IdempotencyKey] = candidates[i].Prediction.NaturalKey()
	}
	for _, result := range batch.Results {
		if result.Disposition == executor.DispositionDeferred {
			continue
		}
		key, ok := naturalKeys[result.IdempotencyKey]
		if !ok {
			continue
		}
		if err := d.store.MarkMatched(ctx, key); err != nil {
			log.Printf("[stakerd] mark matched %s: %v", key, err)
		}
	}
}

// buildCandidates matches the unmatched backlog against the venue's open
// markets and keeps every actionable, sizable candidate. Unmatched
// predictions stay in the store for manual follow-up.
func (d *daemon) buildCandidates(ctx context.Context) ([]core.MatchedCandidate, int, error) {
	predictions, err := d.store.ListUnmatchedPredictions(ctx)
	if err != nil {
		return nil, 0, err
	}
	if len(predictions) == 0 {
		return nil, 0, nil
	}

	quotes, err := d.venue.ListOpenMarkets(ctx, d.category)
	if err != nil {
		return nil, 0, err
	}

	var candidates []core.MatchedCandidate
	unmatched := 0
	for i := range predictions {
		pred := predictions[i]

		binding, err := d.matcher.Match(&pred, quotes)
		if err != nil {
			var matchErr *core.MatchError
			if errors.As(err, &matchErr) {
				unmatched++
				d.metrics.MatchesTotal.WithLabelValues("unmatched").Inc()
				continue
			}
			return nil, unmatched, err
		}
		d.metrics.MatchesTotal.WithLabelValues("matched").Inc()

		yesPrice := binding.PriceCents
		if binding.Side == core.SideNo {
			yesPrice = 100 - binding.PriceCents
		}
		fair, err := engine.FairProbForSide(binding.Side, yesPrice)
		if err != nil {
			log.Printf("[stakerd] %s: %v", binding.Ticker, err)
			continue
		}

		edge, err := d.evaluator.Evaluate(pred.Probability, fair, binding.PriceCents)
		if err != nil {
			log.Printf("[stakerd] evaluate %s: %v", binding.Ticker, err)
			continue
		}
		d.metrics.EdgeEvaluated.Observe(edge.EdgePct.InexactFloat64())
		if !edge.Actionable {
			continue
		}

		stake, err := d.sizer.Size(pred.Probability, binding.PriceCents)
		if err != nil {
			log.Printf("[stakerd] size %s: %v", binding.Ticker, err)
			continue
		}
		if stake.NoBet {
			continue
		}

		candidates = append(candidates, core.MatchedCandidate{
			Prediction:          pred,
			Ticker:              binding.Ticker,
			Side:                binding.Side,
			PriceCents:          binding.PriceCents,
			FairProb:            fair,
			EdgePct:             edge.EdgePct.InexactFloat64(),
			ExpectedValue:       edge.ExpectedValue.InexactFloat64(),
			SuggestedStakeCents: stake.StakeCents,
			SuggestedContracts:  stake.Contracts,
			IdempotencyKey:      core.IdempotencyKey(binding.Ticker, pred.GameID, pred.Pick),
		})
	}
	return candidates, unmatched, nil
}
