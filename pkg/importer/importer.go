// Package importer pulls fresh predictions and market snapshots into the
// store. Every persistence step is an upsert on a natural key, so a crash
// mid-run never corrupts imported data and a retry never duplicates it.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shataken-source/cevict-live-sub025/core"
	"github.com/shataken-source/cevict-live-sub025/pkg/metrics"
	"github.com/shataken-source/cevict-live-sub025/pkg/store"
	"github.com/shataken-source/cevict-live-sub025/pkg/venue"
)

// Artifact is one batch of predictions from an upstream source, named so it
// can be archived once processed.
type Artifact struct {
	Name        string
	Predictions []core.Prediction
}

// PredictionSource supplies prediction artifacts.
type PredictionSource interface {
	Fetch(ctx context.Context) ([]Artifact, error)
}

// Config configures one import run.
type Config struct {
	Category string // venue market category to snapshot
}

// Summary reports what one run ingested.
type Summary struct {
	PredictionsInserted  int `json:"predictions_inserted"`
	PredictionsDuplicate int `json:"predictions_duplicate"`
	PredictionsRejected  int `json:"predictions_rejected"`
	QuotesSaved          int `json:"quotes_saved"`
	ArtifactsArchived    int `json:"artifacts_archived"`
	ArtifactsSkipped     int `json:"artifacts_skipped"`
}

// Importer runs the ingest pipeline.
type Importer struct {
	config  *Config
	source  PredictionSource
	venue   venue.Client
	store   store.Store
	metrics *metrics.EngineMetrics
}

// New creates an importer. Metrics may be nil; source may be nil when only
// market snapshots are wanted.
func New(config *Config, source PredictionSource, client venue.Client, st store.Store, m *metrics.EngineMetrics) *Importer {
	if config == nil {
		config = &Config{}
	}
	return &Importer{
		config:  config,
		source:  source,
		venue:   client,
		store:   st,
		metrics: m,
	}
}

// Run ingests predictions and then the venue's open-market snapshot. A
// failure on either upstream is isolated: the other half still runs, and
// the first error is returned after both were attempted.
func (imp *Importer) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	var firstErr error
	if imp.source != nil {
		if err := imp.ingestPredictions(ctx, summary); err != nil {
			firstErr = err
			imp.countImportError("predictions")
			log.Printf("[importer] predictions: %v", err)
		}
	}
	if imp.venue != nil {
		if err := imp.snapshotMarkets(ctx, summary); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			imp.countImportError("venue")
			log.Printf("[importer] market snapshot: %v", err)
		}
	}

	log.Printf("[importer] run done: inserted=%d duplicate=%d rejected=%d quotes=%d archived=%d skipped=%d",
		summary.PredictionsInserted, summary.PredictionsDuplicate, summary.PredictionsRejected,
		summary.QuotesSaved, summary.ArtifactsArchived, summary.ArtifactsSkipped)
	return summary, firstErr
}

func (imp *Importer) ingestPredictions(ctx context.Context, summary *Summary) error {
	artifacts, err := imp.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch predictions: %w", err)
	}

	for _, artifact := range artifacts {
		archived, err := imp.store.IsImportArchived(ctx, artifact.Name)
		if err != nil {
			return fmt.Errorf("check archive %s: %w", artifact.Name, err)
		}
		if archived {
			summary.ArtifactsSkipped++
			continue
		}

		for i := range artifact.Predictions {
			p := artifact.Predictions[i]
			if err := validatePrediction(&p); err != nil {
				summary.PredictionsRejected++
				log.Printf("[importer] reject prediction from %s: %v", artifact.Name, err)
				continue
			}
			if p.CreatedAt.IsZero() {
				p.CreatedAt = time.Now().UTC()
			}
			p.MatchStatus = core.MatchUnmatched

			inserted, err := imp.store.UpsertPrediction(ctx, &p)
			if err != nil {
				return fmt.Errorf("upsert prediction %s: %w", p.NaturalKey(), err)
			}
			if inserted {
				summary.PredictionsInserted++
				imp.countPrediction("inserted")
			} else {
				summary.PredictionsDuplicate++
				imp.countPrediction("duplicate")
			}
		}

		// Archive after the upserts so a crash before this point replays
		// the artifact; the natural-key upsert absorbs the replay.
		archived, err = imp.store.MarkImportArchived(ctx, artifact.Name)
		if err != nil {
			return fmt.Errorf("archive %s: %w", artifact.Name, err)
		}
		if archived {
			summary.ArtifactsArchived++
		} else {
			// Another importer archived it between our check and mark.
			summary.ArtifactsSkipped++
		}
	}
	return nil
}

func (imp *Importer) snapshotMarkets(ctx context.Context, summary *Summary) error {
	quotes, err := imp.venue.ListOpenMarkets(ctx, imp.config.Category)
	if err != nil {
		return fmt.Errorf("list open markets: %w", err)
	}
	if len(quotes) == 0 {
		return nil
	}
	if err := imp.store.SaveQuotes(ctx, quotes); err != nil {
		return fmt.Errorf("save quotes: %w", err)
	}
	summary.QuotesSaved = len(quotes)
	if imp.metrics != nil {
		imp.metrics.QuotesImported.Add(float64(len(quotes)))
	}
	return nil
}

func validatePrediction(p *core.Prediction) error {
	if p.GameID == "" {
		return core.NewDataError("game_id", "missing")
	}
	if p.Pick == "" {
		return core.NewDataError("pick", "missing")
	}
	if p.HomeTeam == "" || p.AwayTeam == "" {
		return core.NewDataError("teams", "home and away team are required")
	}
	if math.IsNaN(p.Probability) || math.IsInf(p.Probability, 0) ||
		p.Probability <= 0 || p.Probability >= 1 {
		return core.NewDataError("predicted_probability", "%f outside (0,1)", p.Probability)
	}
	return nil
}

func (imp *Importer) countPrediction(result string) {
	if imp.metrics != nil {
		imp.metrics.PredictionsImported.WithLabelValues(result).Inc()
	}
}

func (imp *Importer) countImportError(source string) {
	if imp.metrics != nil {
		imp.metrics.ImportErrors.WithLabelValues(source).Inc()
	}
}

// DirSource reads prediction artifacts from *.json files in a directory,
// one JSON array of predictions per file.
type DirSource struct {
	Dir string
}

// Fetch lists the directory's JSON files in name order and parses each as
// one artifact.
func (d *DirSource) Fetch(ctx context.Context) ([]Artifact, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	artifacts := make([]Artifact, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(d.Dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var predictions []core.Prediction
		if err := json.Unmarshal(data, &predictions); err != nil {
			return nil, core.NewDataError("artifact", "%s: %v", name, err)
		}
		artifacts = append(artifacts, Artifact{Name: name, Predictions: predictions})
	}
	return artifacts, nil
}
