// stakerd is the staking engine daemon. Each scheduled run imports fresh
// predictions and market quotes, matches them, evaluates edge, sizes stakes
// and submits the selected batch to the venue. Without venue credentials it
// runs fully simulated and only logs intended actions.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shataken-source/cevict-live-sub025/core"
	"github.com/shataken-source/cevict-live-sub025/pkg/config"
	"github.com/shataken-source/cevict-live-sub025/pkg/engine"
	"github.com/shataken-source/cevict-live-sub025/pkg/executor"
	"github.com/shataken-source/cevict-live-sub025/pkg/importer"
	"github.com/shataken-source/cevict-live-sub025/pkg/match"
	"github.com/shataken-source/cevict-live-sub025/pkg/metrics"
	"github.com/shataken-source/cevict-live-sub025/pkg/policy"
	"github.com/shataken-source/cevict-live-sub025/pkg/store"
	"github.com/shataken-source/cevict-live-sub025/pkg/venue"
)

var (
	once       = flag.Bool("once", false, "Run one batch cycle and exit")
	httpAddr   = flag.String("http", "", "Metrics/status listener (overrides LISTEN_ADDR)")
	minEdgePct = flag.Float64("min-edge", 3.0, "Minimum edge percentage to act on")
	kellyFrac  = flag.Float64("kelly", 0.25, "Fraction of full Kelly to stake")
	maxStake   = flag.Int64("max-stake", 2500, "Maximum stake per bet in cents")
	simulated  = flag.Bool("sim", false, "Force simulated venue even with credentials")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("starting stakerd")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *httpAddr != "" {
		cfg.ListenAddr = *httpAddr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d, err := newDaemon(cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	go serveHTTP(cfg.ListenAddr, d)
	if cfg.VenueStreamURL != "" {
		go runQuoteStream(ctx, cfg, d)
	}

	if *once {
		d.runOnce(ctx)
		log.Println("single run complete")
		return
	}

	log.Printf("running every %s (http=%s, simulated=%v)", cfg.Interval, cfg.ListenAddr, d.simulated)
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	d.runOnce(ctx)
	for {
		select {
		case <-ticker.C:
			d.runOnce(ctx)
		case <-sigCh:
			log.Println("shutting down")
			cancel()
			return
		}
	}
}

func newDaemon(cfg *config.Config) (*daemon, error) {
	m := metrics.New()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}
		st = pg
		log.Println("using postgres store")
	} else {
		st = store.NewMemory()
		log.Println("DATABASE_URL not set, using in-memory store")
	}

	client, sim := buildVenue(cfg)

	run := policy.NewRunState(nil)
	evalConfig := engine.DefaultEvaluatorConfig()
	evalConfig.MinEdgePct = *minEdgePct
	evaluator := engine.NewEvaluator(evalConfig)
	sizerConfig := engine.DefaultSizerConfig()
	sizerConfig.KellyFraction = *kellyFrac
	sizerConfig.MaxStakeCents = *maxStake
	sizer := engine.NewSizer(sizerConfig)
	execConfig := executor.DefaultConfig()
	execConfig.AutoMinEdgePct = *minEdgePct

	source := &importer.DirSource{Dir: cfg.PredictionsDir}
	imp := importer.New(&importer.Config{Category: cfg.Category}, source, client, st, m)

	return &daemon{
		category:  cfg.Category,
		store:     st,
		venue:     client,
		importer:  imp,
		matcher:   match.NewMatcher(nil),
		evaluator: evaluator,
		sizer:     sizer,
		executor:  executor.New(execConfig, st, client, run, m),
		metrics:   m,
		simulated: sim,
	}, nil
}

// buildVenue returns the live HTTP client when credentials exist, degrading
// to the simulator when they are missing or -sim is set.
func buildVenue(cfg *config.Config) (venue.Client, bool) {
	if *simulated {
		log.Println("simulated venue forced by flag")
		return venue.NewSimClient(cfg.SimBalanceCents), true
	}

	token, err := cfg.VenueCredentials()
	if err != nil {
		var configErr *core.ConfigError
		if errors.As(err, &configErr) {
			log.Printf("%v, degrading to simulated venue", configErr)
		}
		return venue.NewSimClient(cfg.SimBalanceCents), true
	}

	client, err := venue.NewHTTPClient(token, venue.WithBaseURL(cfg.VenueBaseURL))
	if err != nil {
		log.Printf("venue client: %v, degrading to simulated venue", err)
		return venue.NewSimClient(cfg.SimBalanceCents), true
	}
	return client, false
}

// runQuoteStream keeps the stored quote snapshot fresh between scheduled
// runs by consuming the venue's websocket feed for currently open markets.
func runQuoteStream(ctx context.Context, cfg *config.Config, d *daemon) {
	quotes, err := d.venue.ListOpenMarkets(ctx, cfg.Category)
	if err != nil {
		log.Printf("[stream] list markets for subscription: %v", err)
		return
	}
	byTicker := make(map[string]core.MarketQuote, len(quotes))
	tickers := make([]string, 0, len(quotes))
	for _, q := range quotes {
		byTicker[q.Ticker] = q
		tickers = append(tickers, q.Ticker)
	}
	if len(tickers) == 0 {
		log.Println("[stream] no open markets to subscribe to")
		return
	}

	stream := venue.NewStream(venue.DefaultStreamConfig(cfg.VenueStreamURL), tickers, venue.StreamHandlers{
		OnQuote: func(ticker string, yesAskCents, noBidCents, volume int64) {
			quote, ok := byTicker[ticker]
			if !ok {
				return
			}
			quote.PriceCents = yesAskCents
			quote.NoBidCents = noBidCents
			quote.Volume = volume
			if err := d.store.SaveQuotes(ctx, []core.MarketQuote{quote}); err != nil {
				log.Printf("[stream] save quote %s: %v", ticker, err)
			}
		},
		OnError: func(err error) {
			log.Printf("[stream] %v", err)
		},
	})
	if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("[stream] stopped: %v", err)
	}
}

func serveHTTP(addr string, d *daemon) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		last := d.lastRun
		d.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if last == nil {
			w.Write([]byte(`{"status":"no runs yet"}`))
			return
		}
		if err := json.NewEncoder(w).Encode(last); err != nil {
			log.Printf("[stakerd] encode status: %v", err)
		}
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	log.Printf("http listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("http server: %v", err)
	}
}
