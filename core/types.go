// Package core holds the domain entities shared by the matching, staking,
// execution and backtesting packages, plus the error taxonomy used at
// component boundaries.
package core

import (
	"fmt"
	"time"
)

// MatchStatus tracks whether a prediction has been bound to a market.
type MatchStatus string

const (
	MatchUnmatched MatchStatus = "unmatched"
	MatchMatched   MatchStatus = "matched"
)

// Side is the contract side of a binary market.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// BetStatus is the lifecycle status of an executed bet.
type BetStatus string

const (
	BetOpen     BetStatus = "open"
	BetFilled   BetStatus = "filled"
	BetRejected BetStatus = "rejected"
	BetSettled  BetStatus = "settled"
	BetSkipped  BetStatus = "skipped"
)

// Prediction is a win-probability estimate produced by the upstream model.
// Probability is the model's estimate for the picked side; Confidence is a
// display/filter score and is never substituted for Probability in Kelly or
// EV math.
type Prediction struct {
	GameID      string      `json:"game_id"`
	League      string      `json:"league"`
	HomeTeam    string      `json:"home_team"`
	AwayTeam    string      `json:"away_team"`
	Pick        string      `json:"pick"` // team name of the picked side
	Probability float64     `json:"predicted_probability"`
	Odds        float64     `json:"odds,omitempty"` // american odds requested, 0 if absent
	Confidence  float64     `json:"confidence,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	MatchStatus MatchStatus `json:"match_status"`
}

// NaturalKey is the dedup key for imported predictions.
func (p *Prediction) NaturalKey() string {
	return p.GameID + "|" + p.Pick + "|" + p.CreatedAt.Format("2006-01-02")
}

// MarketQuote is an open market instrument quoted by the venue.
// Contract prices are in cents, 1..99.
type MarketQuote struct {
	Ticker      string    `json:"ticker"`
	Title       string    `json:"title"`
	Side        Side      `json:"side"`
	PriceCents  int64     `json:"price_cents"`
	YesBidCents int64     `json:"yes_bid_cents,omitempty"`
	NoBidCents  int64     `json:"no_bid_cents,omitempty"`
	Volume      int64     `json:"volume"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// MatchedCandidate binds a prediction to a market instrument and carries the
// evaluated edge and suggested sizing.
type MatchedCandidate struct {
	Prediction Prediction `json:"prediction"`

	Ticker     string `json:"ticker"`
	Side       Side   `json:"side"`
	PriceCents int64  `json:"price_cents"`

	FairProb            float64 `json:"fair_probability"`
	EdgePct             float64 `json:"edge_pct"`
	ExpectedValue       float64 `json:"expected_value"` // per $100 staked
	SuggestedStakeCents int64   `json:"suggested_stake_cents"`
	SuggestedContracts  int64   `json:"suggested_contracts"`

	IdempotencyKey string `json:"idempotency_key"`
}

// IdempotencyKey builds the composite dedup key for a bet on a candidate.
// Exactly one executed bet may exist per key per settlement window.
func IdempotencyKey(ticker, gameID, pick string) string {
	return ticker + "|" + gameID + "|" + pick
}

// ExecutedBet is the durable record of a submitted (or skipped) bet.
// EdgePct and Confidence snapshot the justification for the placement and
// feed future backtests.
type ExecutedBet struct {
	IdempotencyKey   string    `json:"idempotency_key"`
	Ticker           string    `json:"ticker"`
	GameID           string    `json:"game_id"`
	Pick             string    `json:"pick"`
	Side             Side      `json:"side"`
	ActualStakeCents int64     `json:"actual_stake_cents"`
	ActualContracts  int64     `json:"actual_contracts"`
	PriceCents       int64     `json:"price_cents"`
	VenueOrderID     string    `json:"venue_order_id,omitempty"`
	Status           BetStatus `json:"status"`
	EdgePct          float64   `json:"edge_pct"`
	Confidence       float64   `json:"confidence"`
	PlacedAt         time.Time `json:"placed_at"`
}

// Outcome grades a historical row.
type Outcome string

const (
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomePush    Outcome = "push"
	OutcomePending Outcome = "pending"
)

// BacktestRow is one historical game with recorded two-sided odds and,
// once settled, the actual winner.
type BacktestRow struct {
	GameID   string    `json:"game_id"`
	League   string    `json:"league"`
	Date     time.Time `json:"date"`
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
	HomeOdds float64   `json:"home_odds"` // american
	AwayOdds float64   `json:"away_odds"` // american
	Winner   string    `json:"winner,omitempty"`

	// Derived by the backtester, zero until graded.
	Pick         string  `json:"pick,omitempty"`
	FairProb     float64 `json:"fair_probability,omitempty"`
	ComputedEdge float64 `json:"computed_edge,omitempty"`
	Outcome      Outcome `json:"outcome,omitempty"`
	ProfitCents  int64   `json:"profit_cents,omitempty"`
}

// String is a compact matchup label used in logs and reports.
func (r *BacktestRow) String() string {
	return fmt.Sprintf("%s %s @ %s", r.League, r.AwayTeam, r.HomeTeam)
}
