package odds

import (
	"math"

	"github.com/shataken-source/cevict-live-sub025/core"
)

// Method identifies which de-vig method produced a set of fair probabilities.
type Method string

const (
	MethodShin           Method = "shin"
	MethodMultiplicative Method = "multiplicative"
)

const (
	shinMaxIterations = 100
	shinTolerance     = 1e-12
	sumTolerance      = 1e-9
)

// Devig strips the bookmaker margin from raw implied probabilities.
//
// For exactly two outcomes it applies Shin's method: bisect on the margin
// parameter z until sum p_i/(p_i + z*(1-p_i)) = 1, then take
// fair p_i = p_i/(p_i + z*(1-p_i)). For more than two outcomes, or when the
// bisection fails to converge within the iteration bound, it falls back to
// multiplicative normalization.
//
// Inputs must be finite and strictly inside (0,1); outputs are strictly
// inside (0,1) and sum to 1 within 1e-9.
func Devig(raw []float64) ([]float64, Method, error) {
	if len(raw) < 2 {
		return nil, "", core.NewDataError("probabilities", "need at least 2 outcomes, got %d", len(raw))
	}
	for _, p := range raw {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, "", core.NewDataError("probabilities", "non-finite implied probability")
		}
		if p <= 0 || p >= 1 {
			return nil, "", core.NewDataError("probabilities", "implied probability %v outside (0,1)", p)
		}
	}

	if len(raw) == 2 {
		if fair, ok := devigShin(raw); ok {
			return fair, MethodShin, nil
		}
	}
	return devigMultiplicative(raw), MethodMultiplicative, nil
}

// FairPair de-vigs a two-sided american quote and returns the fair
// probabilities for home and away along with the method used.
func FairPair(homeAmerican, awayAmerican float64) (home, away float64, method Method, err error) {
	rawHome, err := AmericanToImplied(homeAmerican)
	if err != nil {
		return 0, 0, "", err
	}
	rawAway, err := AmericanToImplied(awayAmerican)
	if err != nil {
		return 0, 0, "", err
	}
	fair, method, err := Devig([]float64{rawHome, rawAway})
	if err != nil {
		return 0, 0, "", err
	}
	return fair[0], fair[1], method, nil
}

// FairFromCents de-vigs a two-sided contract quote (yes and no prices in
// cents) and returns the fair yes probability.
func FairFromCents(yesCents, noCents int64) (float64, Method, error) {
	rawYes, err := CentsToImplied(yesCents)
	if err != nil {
		return 0, "", err
	}
	rawNo, err := CentsToImplied(noCents)
	if err != nil {
		return 0, "", err
	}
	fair, method, err := Devig([]float64{rawYes, rawNo})
	if err != nil {
		return 0, "", err
	}
	return fair[0], method, nil
}

// devigShin runs the bisection on the insider-trading parameter z.
// Returns ok=false when the bisection does not converge.
func devigShin(raw []float64) ([]float64, bool) {
	shinSum := func(z float64) float64 {
		s := 0.0
		for _, p := range raw {
			s += p / (p + z*(1-p))
		}
		return s
	}

	// The sum is strictly decreasing in z, equal to the outcome count at
	// z=0 and to the raw sum at z=1. With a positive overround the root
	// sits above 1, so bracket it before bisecting.
	lo, hi := 0.0, 1.0
	for i := 0; shinSum(hi) > 1; i++ {
		if i >= 60 {
			return nil, false
		}
		lo = hi
		hi *= 2
	}

	var z float64
	converged := false
	for i := 0; i < shinMaxIterations; i++ {
		z = (lo + hi) / 2
		s := shinSum(z)
		if math.Abs(s-1) < shinTolerance {
			converged = true
			break
		}
		if s > 1 {
			lo = z
		} else {
			hi = z
		}
	}
	if !converged && math.Abs(shinSum(z)-1) > sumTolerance {
		return nil, false
	}

	fair := make([]float64, len(raw))
	for i, p := range raw {
		fair[i] = p / (p + z*(1-p))
	}
	// Exactness guard: close any residual bisection error so the pair sums
	// to 1 within tolerance.
	total := 0.0
	for _, p := range fair {
		total += p
	}
	for i := range fair {
		fair[i] /= total
	}
	return fair, true
}

func devigMultiplicative(raw []float64) []float64 {
	total := 0.0
	for _, p := range raw {
		total += p
	}
	fair := make([]float64, len(raw))
	for i, p := range raw {
		fair[i] = p / total
	}
	return fair
}

// Overround returns the bookmaker margin: sum of raw implied probabilities
// minus 1.
func Overround(raw []float64) float64 {
	total := 0.0
	for _, p := range raw {
		total += p
	}
	return total - 1
}
