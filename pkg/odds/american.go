// Package odds converts quoted bookmaker odds and prediction-market prices
// into de-vigged fair probabilities.
package odds

import (
	"math"

	"github.com/shataken-source/cevict-live-sub025/core"
)

// AmericanToImplied converts american odds to a raw implied probability.
// Negative odds: |o|/(|o|+100). Positive odds: 100/(o+100).
// American odds are undefined inside (-100, 100) and at 0.
func AmericanToImplied(american float64) (float64, error) {
	if math.IsNaN(american) || math.IsInf(american, 0) {
		return 0, core.NewDataError("odds", "non-finite american odds")
	}
	if american == 0 {
		return 0, core.NewDataError("odds", "american odds cannot be 0")
	}
	if math.Abs(american) < 100 {
		return 0, core.NewDataError("odds", "american odds %v inside (-100, 100)", american)
	}
	if american < 0 {
		return -american / (-american + 100), nil
	}
	return 100 / (american + 100), nil
}

// AmericanToDecimal converts american odds to decimal odds.
func AmericanToDecimal(american float64) (float64, error) {
	p, err := AmericanToImplied(american)
	if err != nil {
		return 0, err
	}
	return 1 / p, nil
}

// CentsToImplied converts a contract price in cents to a raw implied
// probability. Valid contract prices are 1..99.
func CentsToImplied(cents int64) (float64, error) {
	if cents < 1 || cents > 99 {
		return 0, core.NewDataError("price_cents", "price %d outside [1,99]", cents)
	}
	return float64(cents) / 100, nil
}

// PayoutRatio returns the net decimal payout b for buying one contract at
// the given price in cents: b = (100-price)/price.
func PayoutRatio(priceCents int64) (float64, error) {
	if priceCents < 1 || priceCents > 99 {
		return 0, core.NewDataError("price_cents", "price %d outside [1,99]", priceCents)
	}
	return float64(100-priceCents) / float64(priceCents), nil
}
