// Package engine evaluates prediction edge against de-vigged market
// probabilities and sizes risk-bounded stakes.
package engine

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/shataken-source/cevict-live-sub025/core"
	"github.com/shataken-source/cevict-live-sub025/pkg/odds"
)

// Evaluator computes edge and expected value for matched candidates.
type Evaluator struct {
	minEdgePct    decimal.Decimal
	minConfidence decimal.Decimal
	maxConfidence decimal.Decimal
}

// EvaluatorConfig configures the edge evaluator. The confidence band bounds
// the model probability, not the display confidence score.
type EvaluatorConfig struct {
	MinEdgePct    float64 // minimum edge in percentage points
	MinConfidence float64 // lower bound on predicted probability
	MaxConfidence float64 // upper bound on predicted probability
}

// DefaultEvaluatorConfig returns default thresholds. The defaults are the
// conservative starting point; the backtester recommends replacements per
// league and odds band.
func DefaultEvaluatorConfig() *EvaluatorConfig {
	return &EvaluatorConfig{
		MinEdgePct:    3.0,
		MinConfidence: 0.52,
		MaxConfidence: 0.95,
	}
}

// NewEvaluator creates an edge evaluator.
func NewEvaluator(config *EvaluatorConfig) *Evaluator {
	if config == nil {
		config = DefaultEvaluatorConfig()
	}
	defaults := DefaultEvaluatorConfig()
	if config.MaxConfidence == 0 {
		config.MaxConfidence = defaults.MaxConfidence
	}
	return &Evaluator{
		minEdgePct:    decimal.NewFromFloat(config.MinEdgePct),
		minConfidence: decimal.NewFromFloat(config.MinConfidence),
		maxConfidence: decimal.NewFromFloat(config.MaxConfidence),
	}
}

// EdgeResult is the outcome of evaluating one candidate side.
type EdgeResult struct {
	PredictedProb decimal.Decimal
	FairProb      decimal.Decimal
	PriceCents    int64
	EdgePct       decimal.Decimal
	ExpectedValue decimal.Decimal // per $100 staked
	Actionable    bool
	Reason        string
}

// Evaluate compares the model probability against the fair probability for
// the quoted side. Edge and EV always use the de-vigged fair probability,
// never a one-sided raw implied probability.
func (e *Evaluator) Evaluate(predictedProb, fairProb float64, priceCents int64) (*EdgeResult, error) {
	if math.IsNaN(predictedProb) || math.IsInf(predictedProb, 0) {
		return nil, core.NewDataError("predicted_probability", "non-finite")
	}
	if math.IsNaN(fairProb) || math.IsInf(fairProb, 0) {
		return nil, core.NewDataError("fair_probability", "non-finite")
	}
	if predictedProb <= 0 || predictedProb >= 1 {
		return nil, core.NewDataError("predicted_probability", "%v outside (0,1)", predictedProb)
	}
	if fairProb <= 0 || fairProb >= 1 {
		return nil, core.NewDataError("fair_probability", "%v outside (0,1)", fairProb)
	}
	b, err := odds.PayoutRatio(priceCents)
	if err != nil {
		return nil, err
	}

	p := decimal.NewFromFloat(predictedProb)
	fair := decimal.NewFromFloat(fairProb)
	payout := decimal.NewFromFloat(b)

	edgePct := p.Sub(fair).Mul(decimal.NewFromInt(100))

	// EV per $100 staked: win pays b per unit, loss forfeits the unit.
	ev := p.Mul(payout).Sub(decimal.NewFromInt(1).Sub(p)).Mul(decimal.NewFromInt(100))

	result := &EdgeResult{
		PredictedProb: p,
		FairProb:      fair,
		PriceCents:    priceCents,
		EdgePct:       edgePct,
		ExpectedValue: ev,
	}

	if edgePct.LessThan(e.minEdgePct) {
		result.Reason = "edge below minimum threshold"
		return result, nil
	}
	if p.LessThan(e.minConfidence) || p.GreaterThan(e.maxConfidence) {
		result.Reason = "predicted probability outside confidence band"
		return result, nil
	}

	result.Actionable = true
	result.Reason = "positive edge within confidence band"
	return result, nil
}

// FairProbForSide derives the fair probability of buying the given side when
// only a one-sided price is available: the no side of a yes price is the
// complement. Used when the venue exposes a single book.
func FairProbForSide(side core.Side, yesPriceCents int64) (float64, error) {
	raw, err := odds.CentsToImplied(yesPriceCents)
	if err != nil {
		return 0, err
	}
	if side == core.SideNo {
		return 1 - raw, nil
	}
	return raw, nil
}
