package backtest

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Render produces the calibration report as fixed-width text tables. Output
// is byte-identical for identical sweep results: every table is pre-sorted
// and every decimal rendered at fixed scale.
func Render(result *SweepResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "BACKTEST REPORT\n")
	fmt.Fprintf(&sb, "rows=%d settled=%d pending=%d rejected=%d unit_stake=%s\n\n",
		result.TotalRows, result.TotalRows-result.Pending, result.Pending,
		result.Rejected, dollars(result.UnitStakeCents))

	fmt.Fprintf(&sb, "PER LEAGUE\n")
	fmt.Fprintf(&sb, "%-10s %7s %6s %6s %6s %9s %10s %8s\n",
		"league", "games", "wins", "losses", "pushes", "win_rate", "net_pnl", "roi")
	for _, row := range result.Leagues {
		writeStatsRow(&sb, 10, row.League, &row.Stats, result.UnitStakeCents)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "PER ODDS BAND\n")
	fmt.Fprintf(&sb, "%-14s %7s %6s %6s %6s %9s %10s %8s\n",
		"band", "games", "wins", "losses", "pushes", "win_rate", "net_pnl", "roi")
	for _, row := range result.Bands {
		writeStatsRow(&sb, 14, row.Band, &row.Stats, result.UnitStakeCents)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "PER THRESHOLD\n")
	fmt.Fprintf(&sb, "%-10s %7s %6s %6s %6s %9s %10s %8s\n",
		"threshold", "games", "wins", "losses", "pushes", "win_rate", "net_pnl", "roi")
	for _, row := range result.Thresholds {
		writeStatsRow(&sb, 10, fmt.Sprintf("%.2f", row.Threshold), &row.Stats, result.UnitStakeCents)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "MONTHLY TREND\n")
	fmt.Fprintf(&sb, "%-10s %7s %6s %6s %6s %9s %10s %8s\n",
		"month", "games", "wins", "losses", "pushes", "win_rate", "net_pnl", "roi")
	for _, row := range result.Monthly {
		writeStatsRow(&sb, 10, row.Month, &row.Stats, result.UnitStakeCents)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "RECOMMENDATIONS\n")
	if len(result.Recommendations) == 0 {
		sb.WriteString("no partition met the sample floor; collect more history before tightening thresholds\n")
	}
	for _, rec := range result.Recommendations {
		fmt.Fprintf(&sb, "%s / %s: bet when fair probability >= %.2f (roi %s%% over %d games)\n",
			rec.League, rec.Band, rec.Threshold, rec.ROIPct.StringFixed(2), rec.Samples)
	}
	if result.Pending > 0 {
		fmt.Fprintf(&sb, "%d rows pending settlement were excluded from every table above\n", result.Pending)
	}
	if result.Rejected > 0 {
		fmt.Fprintf(&sb, "%d rows with invalid odds were rejected during grading\n", result.Rejected)
	}

	return sb.String()
}

func writeStatsRow(sb *strings.Builder, width int, label string, stats *Stats, unitStakeCents int64) {
	fmt.Fprintf(sb, "%-*s %7d %6d %6d %6d %8s%% %10s %7s%%\n",
		width, label,
		stats.Samples, stats.Wins, stats.Losses, stats.Pushes,
		stats.WinRatePct().StringFixed(1),
		dollars(stats.NetProfitCents),
		stats.ROIPct(unitStakeCents).StringFixed(2))
}

func dollars(cents int64) string {
	return "$" + decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
