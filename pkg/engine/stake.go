package engine

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/shataken-source/cevict-live-sub025/core"
)

// Sizer converts edge into a bounded stake using a fractional Kelly rule.
type Sizer struct {
	kellyFraction decimal.Decimal
	allocationCap decimal.Decimal // cents
	minStakeCents decimal.Decimal
	maxStakeCents decimal.Decimal
}

// SizerConfig configures the stake sizer. Amounts are in cents.
type SizerConfig struct {
	KellyFraction      float64 // fraction of full Kelly, default 0.25
	AllocationCapCents int64   // bankroll slice a full-Kelly bet may claim
	MinStakeCents      int64
	MaxStakeCents      int64
}

// DefaultSizerConfig returns quarter-Kelly sizing against a $100 allocation
// with a $1 floor and $25 ceiling per bet.
func DefaultSizerConfig() *SizerConfig {
	return &SizerConfig{
		KellyFraction:      0.25,
		AllocationCapCents: 10000,
		MinStakeCents:      100,
		MaxStakeCents:      2500,
	}
}

// NewSizer creates a stake sizer.
func NewSizer(config *SizerConfig) *Sizer {
	if config == nil {
		config = DefaultSizerConfig()
	}
	defaults := DefaultSizerConfig()
	if config.KellyFraction == 0 {
		config.KellyFraction = defaults.KellyFraction
	}
	if config.AllocationCapCents == 0 {
		config.AllocationCapCents = defaults.AllocationCapCents
	}
	if config.MaxStakeCents == 0 {
		config.MaxStakeCents = defaults.MaxStakeCents
	}
	return &Sizer{
		kellyFraction: decimal.NewFromFloat(config.KellyFraction),
		allocationCap: decimal.NewFromInt(config.AllocationCapCents),
		minStakeCents: decimal.NewFromInt(config.MinStakeCents),
		maxStakeCents: decimal.NewFromInt(config.MaxStakeCents),
	}
}

// StakeResult is the sized stake for one candidate.
type StakeResult struct {
	KellyFraction decimal.Decimal // full Kelly f, clipped to [0,1]
	StakeCents    int64
	Contracts     int64
	CostCents     int64
	NoBet         bool
	Reason        string
}

// Size computes the fractional-Kelly stake for buying at the given price.
//
// Kelly fraction f = (p*(b+1) - 1) / b with b = (100-price)/price. f <= 0
// yields a NoBet result (absence of edge, not an error). The stake is
// clamped to [MinStakeCents, MaxStakeCents] and contracts never round up:
// contracts*price <= stake always.
func (s *Sizer) Size(predictedProb float64, priceCents int64) (*StakeResult, error) {
	if math.IsNaN(predictedProb) || math.IsInf(predictedProb, 0) {
		return nil, core.NewDataError("predicted_probability", "non-finite")
	}
	if predictedProb <= 0 || predictedProb >= 1 {
		return nil, core.NewDataError("predicted_probability", "%v outside (0,1)", predictedProb)
	}
	if priceCents < 1 || priceCents > 99 {
		return nil, core.NewDataError("price_cents", "price %d outside [1,99]", priceCents)
	}

	price := decimal.NewFromInt(priceCents)
	b := decimal.NewFromInt(100).Sub(price).Div(price)
	p := decimal.NewFromFloat(predictedProb)

	// f = (p*(b+1) - 1) / b
	f := p.Mul(b.Add(decimal.NewFromInt(1))).Sub(decimal.NewFromInt(1)).Div(b)

	if f.LessThanOrEqual(decimal.Zero) {
		return &StakeResult{NoBet: true, Reason: "no positive Kelly fraction"}, nil
	}
	if f.GreaterThan(decimal.NewFromInt(1)) {
		f = decimal.NewFromInt(1)
	}

	stake := f.Mul(s.kellyFraction).Mul(s.allocationCap)
	if stake.GreaterThan(s.maxStakeCents) {
		stake = s.maxStakeCents
	}
	if stake.LessThan(s.minStakeCents) {
		stake = s.minStakeCents
	}

	stakeCents := stake.IntPart() // truncates toward zero, never rounds up
	contracts := stakeCents / priceCents
	cost := contracts * priceCents

	return &StakeResult{
		KellyFraction: f,
		StakeCents:    stakeCents,
		Contracts:     contracts,
		CostCents:     cost,
	}, nil
}

// ContractsFor recomputes the contract count for a manually adjusted stake,
// guaranteeing at least one contract and cost <= stake for stake >= price.
func ContractsFor(stakeCents, priceCents int64) int64 {
	if priceCents <= 0 {
		return 0
	}
	contracts := stakeCents / priceCents
	if contracts < 1 {
		contracts = 1
	}
	return contracts
}
