// Package backtest replays historical odds and outcomes to calibrate the
// edge thresholds used by the live engine. The sweep is pure and read-only
// over its input rows; identical rows and parameters always produce
// identical tables.
package backtest

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/shataken-source/cevict-live-sub025/core"
	"github.com/shataken-source/cevict-live-sub025/pkg/odds"
)

// Band is a half-open range of American odds [Min, Max).
type Band struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Contains reports whether the quoted odds fall in the band.
func (b Band) Contains(american float64) bool {
	return american >= b.Min && american < b.Max
}

// DefaultBands covers the full quoted range from heavy favorites to
// longshot underdogs.
func DefaultBands() []Band {
	return []Band{
		{Name: "heavy_favorite", Min: -1000, Max: -300},
		{Name: "favorite", Min: -300, Max: -110},
		{Name: "near_even", Min: -110, Max: 110},
		{Name: "underdog", Min: 110, Max: 1001},
	}
}

// Config holds the sweep parameters.
type Config struct {
	Bands          []Band
	Thresholds     []float64 // fair-probability floors to sweep
	MinSamples     int       // floor below which no recommendation is made
	UnitStakeCents int64     // flat stake per simulated bet
	Workers        int
}

// DefaultConfig returns the default sweep parameters.
func DefaultConfig() *Config {
	return &Config{
		Bands:          DefaultBands(),
		Thresholds:     []float64{0.50, 0.55, 0.60, 0.65, 0.70, 0.75, 0.80},
		MinSamples:     5,
		UnitStakeCents: 10000,
		Workers:        4,
	}
}

// Stats aggregates graded rows for one partition.
type Stats struct {
	Samples        int   `json:"samples"`
	Wins           int   `json:"wins"`
	Losses         int   `json:"losses"`
	Pushes         int   `json:"pushes"`
	NetProfitCents int64 `json:"net_profit_cents"`
}

func (s *Stats) add(row *core.BacktestRow) {
	s.Samples++
	switch row.Outcome {
	case core.OutcomeWin:
		s.Wins++
	case core.OutcomeLoss:
		s.Losses++
	case core.OutcomePush:
		s.Pushes++
	}
	s.NetProfitCents += row.ProfitCents
}

// WinRatePct returns wins over decided games as a percentage.
func (s *Stats) WinRatePct() decimal.Decimal {
	decided := s.Wins + s.Losses
	if decided == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.Wins)).
		Div(decimal.NewFromInt(int64(decided))).
		Mul(decimal.NewFromInt(100))
}

// ROIPct returns net profit over total staked as a percentage.
func (s *Stats) ROIPct(unitStakeCents int64) decimal.Decimal {
	if s.Samples == 0 || unitStakeCents == 0 {
		return decimal.Zero
	}
	staked := decimal.NewFromInt(int64(s.Samples)).Mul(decimal.NewFromInt(unitStakeCents))
	return decimal.NewFromInt(s.NetProfitCents).Div(staked).Mul(decimal.NewFromInt(100))
}

// LeagueStats is one per-league table row.
type LeagueStats struct {
	League string `json:"league"`
	Stats
}

// BandStats is one per-band table row.
type BandStats struct {
	Band string `json:"band"`
	Stats
}

// ThresholdStats is one per-threshold table row.
type ThresholdStats struct {
	Threshold float64 `json:"threshold"`
	Stats
}

// MonthStats is one monthly-trend table row.
type MonthStats struct {
	Month string `json:"month"` // YYYY-MM
	Stats
}

// CellStats is one (league, band, threshold) partition of the sweep grid.
type CellStats struct {
	League    string  `json:"league"`
	Band      string  `json:"band"`
	Threshold float64 `json:"threshold"`
	Stats
}

// Recommendation is the calibrated threshold for one league and band.
type Recommendation struct {
	League    string          `json:"league"`
	Band      string          `json:"band"`
	Threshold float64         `json:"threshold"`
	Samples   int             `json:"samples"`
	ROIPct    decimal.Decimal `json:"roi_pct"`
}

// SweepResult holds every table the report renders.
type SweepResult struct {
	TotalRows       int              `json:"total_rows"`
	Pending         int              `json:"pending"`
	Rejected        int              `json:"rejected"`
	Leagues         []LeagueStats    `json:"leagues"`
	Bands           []BandStats      `json:"bands"`
	Thresholds      []ThresholdStats `json:"thresholds"`
	Monthly         []MonthStats     `json:"monthly"`
	Cells           []CellStats      `json:"cells"`
	Recommendations []Recommendation `json:"recommendations"`
	UnitStakeCents  int64            `json:"unit_stake_cents"`
}

// Backtester sweeps a historical corpus.
type Backtester struct {
	config *Config
}

// New creates a backtester.
func New(config *Config) *Backtester {
	if config == nil {
		config = DefaultConfig()
	}
	if len(config.Bands) == 0 {
		config.Bands = DefaultBands()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	if config.MinSamples <= 0 {
		config.MinSamples = DefaultConfig().MinSamples
	}
	if config.UnitStakeCents <= 0 {
		config.UnitStakeCents = DefaultConfig().UnitStakeCents
	}
	return &Backtester{config: config}
}

// Grade fills the derived fields of each row: the favored pick from the
// de-vigged pair, its fair probability, and the flat-stake profit once the
// winner is known. Rows whose odds fail validation are excluded from the
// graded slice and counted in the returned rejected total; rows without a
// winner come back with OutcomePending.
func (b *Backtester) Grade(rows []core.BacktestRow) ([]core.BacktestRow, int) {
	rejected := 0
	graded := make([]core.BacktestRow, 0, len(rows))
	for _, row := range rows {
		fairHome, fairAway, _, err := odds.FairPair(row.HomeOdds, row.AwayOdds)
		if err != nil {
			rejected++
			continue
		}
		rawHome, _ := odds.AmericanToImplied(row.HomeOdds)

		pickOdds := row.HomeOdds
		row.Pick = row.HomeTeam
		row.FairProb = fairHome
		row.ComputedEdge = (fairHome - rawHome) * 100
		if fairAway > fairHome {
			rawAway, _ := odds.AmericanToImplied(row.AwayOdds)
			pickOdds = row.AwayOdds
			row.Pick = row.AwayTeam
			row.FairProb = fairAway
			row.ComputedEdge = (fairAway - rawAway) * 100
		}

		switch {
		case row.Winner == "":
			row.Outcome = core.OutcomePending
		case strings.EqualFold(row.Winner, row.Pick):
			row.Outcome = core.OutcomeWin
			row.ProfitCents = winProfitCents(pickOdds, b.config.UnitStakeCents)
		case strings.EqualFold(row.Winner, row.HomeTeam) || strings.EqualFold(row.Winner, row.AwayTeam):
			row.Outcome = core.OutcomeLoss
			row.ProfitCents = -b.config.UnitStakeCents
		default:
			// A draw or void settles flat.
			row.Outcome = core.OutcomePush
		}
		graded = append(graded, row)
	}
	return graded, rejected
}

// winProfitCents is the profit of a winning flat stake at the given
// American odds, rounded to the cent.
func winProfitCents(american float64, stakeCents int64) int64 {
	stake := decimal.NewFromInt(stakeCents)
	var ratio decimal.Decimal
	if american < 0 {
		ratio = decimal.NewFromInt(100).Div(decimal.NewFromFloat(-american))
	} else {
		ratio = decimal.NewFromFloat(american).Div(decimal.NewFromInt(100))
	}
	return stake.Mul(ratio).Round(0).IntPart()
}

// Sweep grades the corpus and computes every partition table. Pending and
// rejected rows are counted but excluded from all aggregates. Grid cells
// are independent and computed on a bounded worker pool.
func (b *Backtester) Sweep(rows []core.BacktestRow) *SweepResult {
	graded, rejected := b.Grade(rows)

	result := &SweepResult{
		TotalRows:      len(graded),
		Rejected:       rejected,
		UnitStakeCents: b.config.UnitStakeCents,
	}

	var settled []core.BacktestRow
	for i := range graded {
		if graded[i].Outcome == core.OutcomePending {
			result.Pending++
			continue
		}
		settled = append(settled, graded[i])
	}

	result.Leagues = b.leagueTable(settled)
	result.Bands = b.bandTable(settled)
	result.Thresholds = b.thresholdTable(settled)
	result.Monthly = b.monthlyTable(settled)
	result.Cells = b.grid(settled)
	result.Recommendations = b.recommend(result.Cells)
	return result
}

func (b *Backtester) leagueTable(rows []core.BacktestRow) []LeagueStats {
	byLeague := make(map[string]*Stats)
	for i := range rows {
		league := rows[i].League
		if byLeague[league] == nil {
			byLeague[league] = &Stats{}
		}
		byLeague[league].add(&rows[i])
	}
	out := make([]LeagueStats, 0, len(byLeague))
	for league, stats := range byLeague {
		out = append(out, LeagueStats{League: league, Stats: *stats})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].League < out[j].League })
	return out
}

// bandFor finds the band containing the picked side's odds, using the row's
// pick to recover which side's price applies.
func (b *Backtester) bandFor(row *core.BacktestRow) (Band, bool) {
	pickOdds := row.HomeOdds
	if strings.EqualFold(row.Pick, row.AwayTeam) {
		pickOdds = row.AwayOdds
	}
	for _, band := range b.config.Bands {
		if band.Contains(pickOdds) {
			return band, true
		}
	}
	return Band{}, false
}

func (b *Backtester) bandTable(rows []core.BacktestRow) []BandStats {
	out := make([]BandStats, len(b.config.Bands))
	for i, band := range b.config.Bands {
		out[i] = BandStats{Band: band.Name}
	}
	for i := range rows {
		band, ok := b.bandFor(&rows[i])
		if !ok {
			continue
		}
		for j := range out {
			if out[j].Band == band.Name {
				out[j].add(&rows[i])
			}
		}
	}
	return out
}

func (b *Backtester) thresholdTable(rows []core.BacktestRow) []ThresholdStats {
	out := make([]ThresholdStats, len(b.config.Thresholds))
	for i, threshold := range b.config.Thresholds {
		out[i] = ThresholdStats{Threshold: threshold}
		for j := range rows {
			if rows[j].FairProb >= threshold {
				out[i].add(&rows[j])
			}
		}
	}
	return out
}

func (b *Backtester) monthlyTable(rows []core.BacktestRow) []MonthStats {
	byMonth := make(map[string]*Stats)
	for i := range rows {
		month := rows[i].Date.Format("2006-01")
		if byMonth[month] == nil {
			byMonth[month] = &Stats{}
		}
		byMonth[month].add(&rows[i])
	}
	out := make([]MonthStats, 0, len(byMonth))
	for month, stats := range byMonth {
		out = append(out, MonthStats{Month: month, Stats: *stats})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// grid computes the (league, band, threshold) partitions in parallel. The
// output order is fixed by construction, independent of scheduling.
func (b *Backtester) grid(rows []core.BacktestRow) []CellStats {
	leagues := make([]string, 0)
	seen := make(map[string]bool)
	for i := range rows {
		if !seen[rows[i].League] {
			seen[rows[i].League] = true
			leagues = append(leagues, rows[i].League)
		}
	}
	sort.Strings(leagues)

	cells := make([]CellStats, 0, len(leagues)*len(b.config.Bands)*len(b.config.Thresholds))
	for _, league := range leagues {
		for _, band := range b.config.Bands {
			for _, threshold := range b.config.Thresholds {
				cells = append(cells, CellStats{
					League:    league,
					Band:      band.Name,
					Threshold: threshold,
				})
			}
		}
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, b.config.Workers)
	for i := range cells {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			b.fillCell(&cells[i], rows)
		}(i)
	}
	wg.Wait()
	return cells
}

func (b *Backtester) fillCell(cell *CellStats, rows []core.BacktestRow) {
	for i := range rows {
		row := &rows[i]
		if row.League != cell.League || row.FairProb < cell.Threshold {
			continue
		}
		band, ok := b.bandFor(row)
		if !ok || band.Name != cell.Band {
			continue
		}
		cell.add(row)
	}
}

// recommend picks, per league and band, the threshold with the highest ROI
// among partitions meeting the sample floor. Thin partitions never produce
// a recommendation.
func (b *Backtester) recommend(cells []CellStats) []Recommendation {
	best := make(map[string]*Recommendation)
	order := make([]string, 0)
	for i := range cells {
		cell := &cells[i]
		if cell.Samples < b.config.MinSamples {
			continue
		}
		roi := cell.ROIPct(b.config.UnitStakeCents)
		key := cell.League + "|" + cell.Band
		current, ok := best[key]
		if !ok {
			best[key] = &Recommendation{
				League:    cell.League,
				Band:      cell.Band,
				Threshold: cell.Threshold,
				Samples:   cell.Samples,
				ROIPct:    roi,
			}
			order = append(order, key)
			continue
		}
		if roi.GreaterThan(current.ROIPct) {
			current.Threshold = cell.Threshold
			current.Samples = cell.Samples
			current.ROIPct = roi
		}
	}

	out := make([]Recommendation, 0, len(order))
	sort.Strings(order)
	for _, key := range order {
		out = append(out, *best[key])
	}
	return out
}
