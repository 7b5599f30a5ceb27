package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/shataken-source/cevict-live-sub025/core"
)

// Postgres implements Store on PostgreSQL via database/sql + lib/pq.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to the database and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	natural_key   TEXT PRIMARY KEY,
	game_id       TEXT NOT NULL,
	league        TEXT NOT NULL,
	home_team     TEXT NOT NULL,
	away_team     TEXT NOT NULL,
	pick          TEXT NOT NULL,
	probability   DOUBLE PRECISION NOT NULL,
	odds          DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL,
	match_status  TEXT NOT NULL DEFAULT 'unmatched'
);

CREATE TABLE IF NOT EXISTS market_quotes (
	ticker        TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	price_cents   BIGINT NOT NULL,
	yes_bid_cents BIGINT NOT NULL DEFAULT 0,
	no_bid_cents  BIGINT NOT NULL DEFAULT 0,
	volume        BIGINT NOT NULL DEFAULT 0,
	expires_at    TIMESTAMPTZ,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS executed_bets (
	idempotency_key TEXT PRIMARY KEY,
	ticker          TEXT NOT NULL,
	game_id         TEXT NOT NULL,
	pick            TEXT NOT NULL,
	side            TEXT NOT NULL,
	stake_cents     BIGINT NOT NULL,
	contracts       BIGINT NOT NULL,
	price_cents     BIGINT NOT NULL,
	venue_order_id  TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	edge_pct        DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
	placed_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS import_archive (
	artifact    TEXT PRIMARY KEY,
	archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables when they do not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

func (s *Postgres) UpsertPrediction(ctx context.Context, p *core.Prediction) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions
			(natural_key, game_id, league, home_team, away_team, pick,
			 probability, odds, confidence, created_at, match_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (natural_key) DO NOTHING`,
		p.NaturalKey(), p.GameID, p.League, p.HomeTeam, p.AwayTeam, p.Pick,
		p.Probability, p.Odds, p.Confidence, p.CreatedAt, core.MatchUnmatched)
	if err != nil {
		return false, fmt.Errorf("upserting prediction %s: %w", p.NaturalKey(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Postgres) ListUnmatchedPredictions(ctx context.Context) ([]core.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, league, home_team, away_team, pick,
		       probability, odds, confidence, created_at
		FROM predictions
		WHERE match_status = 'unmatched'
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing unmatched predictions: %w", err)
	}
	defer rows.Close()

	var preds []core.Prediction
	for rows.Next() {
		var p core.Prediction
		if err := rows.Scan(&p.GameID, &p.League, &p.HomeTeam, &p.AwayTeam, &p.Pick,
			&p.Probability, &p.Odds, &p.Confidence, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.MatchStatus = core.MatchUnmatched
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

func (s *Postgres) MarkMatched(ctx context.Context, naturalKey string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE predictions SET match_status = 'matched' WHERE natural_key = $1`,
		naturalKey)
	if err != nil {
		return fmt.Errorf("marking prediction %s matched: %w", naturalKey, err)
	}
	return nil
}

func (s *Postgres) SaveQuotes(ctx context.Context, quotes []core.MarketQuote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO market_quotes
			(ticker, title, price_cents, yes_bid_cents, no_bid_cents, volume, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (ticker) DO UPDATE SET
			title = EXCLUDED.title,
			price_cents = EXCLUDED.price_cents,
			yes_bid_cents = EXCLUDED.yes_bid_cents,
			no_bid_cents = EXCLUDED.no_bid_cents,
			volume = EXCLUDED.volume,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range quotes {
		q := &quotes[i]
		var expires any
		if !q.ExpiresAt.IsZero() {
			expires = q.ExpiresAt
		}
		if _, err := stmt.ExecContext(ctx, q.Ticker, q.Title, q.PriceCents,
			q.YesBidCents, q.NoBidCents, q.Volume, expires); err != nil {
			return fmt.Errorf("saving quote %s: %w", q.Ticker, err)
		}
	}
	return tx.Commit()
}

func (s *Postgres) InsertExecutedBet(ctx context.Context, bet *core.ExecutedBet) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO executed_bets
			(idempotency_key, ticker, game_id, pick, side, stake_cents,
			 contracts, price_cents, venue_order_id, status, edge_pct,
			 confidence, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		bet.IdempotencyKey, bet.Ticker, bet.GameID, bet.Pick, bet.Side,
		bet.ActualStakeCents, bet.ActualContracts, bet.PriceCents,
		bet.VenueOrderID, bet.Status, bet.EdgePct, bet.Confidence, bet.PlacedAt)
	if err != nil {
		return false, fmt.Errorf("inserting bet %s: %w", bet.IdempotencyKey, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Postgres) UpdateExecutedBet(ctx context.Context, bet *core.ExecutedBet) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE executed_bets
		SET venue_order_id = $2, status = $3, stake_cents = $4, contracts = $5
		WHERE idempotency_key = $1`,
		bet.IdempotencyKey, bet.VenueOrderID, bet.Status,
		bet.ActualStakeCents, bet.ActualContracts)
	if err != nil {
		return fmt.Errorf("updating bet %s: %w", bet.IdempotencyKey, err)
	}
	return nil
}

func (s *Postgres) GetExecutedBet(ctx context.Context, idempotencyKey string) (*core.ExecutedBet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT idempotency_key, ticker, game_id, pick, side, stake_cents,
		       contracts, price_cents, venue_order_id, status, edge_pct,
		       confidence, placed_at
		FROM executed_bets WHERE idempotency_key = $1`, idempotencyKey)

	var b core.ExecutedBet
	err := row.Scan(&b.IdempotencyKey, &b.Ticker, &b.GameID, &b.Pick, &b.Side,
		&b.ActualStakeCents, &b.ActualContracts, &b.PriceCents,
		&b.VenueOrderID, &b.Status, &b.EdgePct, &b.Confidence, &b.PlacedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching bet %s: %w", idempotencyKey, err)
	}
	return &b, nil
}

func (s *Postgres) ListExecutedBets(ctx context.Context, since time.Time) ([]core.ExecutedBet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idempotency_key, ticker, game_id, pick, side, stake_cents,
		       contracts, price_cents, venue_order_id, status, edge_pct,
		       confidence, placed_at
		FROM executed_bets
		WHERE placed_at >= $1
		ORDER BY placed_at ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("listing bets: %w", err)
	}
	defer rows.Close()

	var bets []core.ExecutedBet
	for rows.Next() {
		var b core.ExecutedBet
		if err := rows.Scan(&b.IdempotencyKey, &b.Ticker, &b.GameID, &b.Pick, &b.Side,
			&b.ActualStakeCents, &b.ActualContracts, &b.PriceCents,
			&b.VenueOrderID, &b.Status, &b.EdgePct, &b.Confidence, &b.PlacedAt); err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

func (s *Postgres) IsImportArchived(ctx context.Context, artifact string) (bool, error) {
	var archived bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM import_archive WHERE artifact = $1)`, artifact).Scan(&archived)
	if err != nil {
		return false, fmt.Errorf("checking archive for %s: %w", artifact, err)
	}
	return archived, nil
}

func (s *Postgres) MarkImportArchived(ctx context.Context, artifact string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_archive (artifact) VALUES ($1)
		ON CONFLICT (artifact) DO NOTHING`, artifact)
	if err != nil {
		return false, fmt.Errorf("archiving %s: %w", artifact, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
