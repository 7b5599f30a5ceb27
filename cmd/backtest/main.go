// backtest replays a historical odds corpus through the staking engine's
// de-vig and grading pipeline, sweeps odds bands and probability thresholds
// and prints the calibration tables.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/shataken-source/cevict-live-sub025/pkg/backtest"
)

var (
	corpusPath = flag.String("corpus", "", "Path to the historical corpus (.csv or .json)")
	unitStake  = flag.Int64("unit-stake", 10000, "Flat stake per simulated bet in cents")
	minSamples = flag.Int("min-samples", 5, "Sample floor below which no threshold is recommended")
	thresholds = flag.String("thresholds", "", "Comma-separated fair-probability thresholds (default 0.50..0.80)")
	jsonOut    = flag.Bool("json", false, "Emit the sweep result as JSON instead of tables")
)

func main() {
	flag.Parse()

	if *corpusPath == "" {
		fmt.Fprintln(os.Stderr, "usage: backtest -corpus games.csv [-unit-stake cents] [-min-samples n] [-json]")
		os.Exit(2)
	}

	rows, err := backtest.LoadCorpus(*corpusPath)
	if err != nil {
		log.Fatalf("load corpus: %v", err)
	}
	log.Printf("loaded %d rows from %s", len(rows), *corpusPath)

	config := backtest.DefaultConfig()
	config.UnitStakeCents = *unitStake
	config.MinSamples = *minSamples
	if *thresholds != "" {
		parsed, err := parseThresholds(*thresholds)
		if err != nil {
			log.Fatalf("parse thresholds: %v", err)
		}
		config.Thresholds = parsed
	}

	result := backtest.New(config).Sweep(rows)

	if *jsonOut {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			log.Fatalf("encode result: %v", err)
		}
		return
	}
	fmt.Print(backtest.Render(result))
}

func parseThresholds(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		if v <= 0 || v >= 1 {
			return nil, fmt.Errorf("threshold %v outside (0,1)", v)
		}
		out = append(out, v)
	}
	return out, nil
}
