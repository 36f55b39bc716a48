package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/mosdata/listings-cli/internal/db"
	"github.com/mosdata/listings-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. Raw offers and clean rows
// live in the listings schema as JSONB documents next to the indexed
// filter columns, so bulk loads can go through COPY.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., the geo loaders).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS listings;

CREATE TABLE IF NOT EXISTS listings.offers_raw (
	id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	deal_type  TEXT NOT NULL,
	url        TEXT NOT NULL,
	scraped_at TIMESTAMPTZ NOT NULL,
	doc        JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS listings.properties_clean (
	property_id TEXT NOT NULL,
	deal_type   TEXT NOT NULL,
	price_first DOUBLE PRECISION,
	price_last  DOUBLE PRECISION,
	doc         JSONB NOT NULL,
	PRIMARY KEY (property_id, deal_type)
);

CREATE TABLE IF NOT EXISTS listings.clean_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	deal_type   TEXT NOT NULL,
	records     INTEGER NOT NULL,
	properties  INTEGER NOT NULL,
	kept        INTEGER NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS listings.stations (
	station_name TEXT NOT NULL,
	line         TEXT NOT NULL,
	lat          DOUBLE PRECISION NOT NULL,
	lng          DOUBLE PRECISION NOT NULL,
	station_type TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS listings.districts (
	name     TEXT NOT NULL,
	code     TEXT NOT NULL,
	ao_code  INTEGER NOT NULL,
	boundary BYTEA NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_offers_raw_deal_type ON listings.offers_raw(deal_type);
CREATE INDEX IF NOT EXISTS idx_offers_raw_url ON listings.offers_raw(url);
CREATE INDEX IF NOT EXISTS idx_properties_clean_deal_type ON listings.properties_clean(deal_type);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var offersRawColumns = []string{"deal_type", "url", "scraped_at", "doc"}

func (s *PostgresStore) InsertListings(ctx context.Context, listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(listings))
	for i := range listings {
		doc, err := json.Marshal(&listings[i])
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal listing %s", listings[i].URL)
		}
		rows = append(rows, []any{
			string(listings[i].DealType),
			listings[i].URL,
			listings[i].ScrapeLoadedAt.UTC(),
			doc,
		})
	}

	_, err := db.CopyInto(ctx, s.pool, "listings.offers_raw", offersRawColumns, rows)
	return eris.Wrap(err, "postgres: insert listings")
}

func (s *PostgresStore) QueryByDealType(ctx context.Context, dealType model.DealType) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM listings.offers_raw WHERE deal_type = $1 ORDER BY id`,
		string(dealType),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query offers %s", dealType)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan offer")
		}
		var l model.Listing
		if err := json.Unmarshal(doc, &l); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal offer")
		}
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "postgres: iterate offers")
}

var propertiesCleanColumns = []string{"property_id", "deal_type", "price_first", "price_last", "doc"}

func (s *PostgresStore) ReplaceDealType(ctx context.Context, dealType model.DealType, propertyRows []model.PropertyRow) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM listings.properties_clean WHERE deal_type = $1`,
		string(dealType),
	); err != nil {
		return eris.Wrapf(err, "postgres: clear clean rows %s", dealType)
	}

	rows := make([][]any, 0, len(propertyRows))
	for i := range propertyRows {
		doc, err := json.Marshal(&propertyRows[i])
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal row %s", propertyRows[i].PropertyID)
		}
		rows = append(rows, []any{
			propertyRows[i].PropertyID,
			string(dealType),
			propertyRows[i].PriceFirst,
			propertyRows[i].PriceLast,
			doc,
		})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "listings.properties_clean",
		Columns:      propertiesCleanColumns,
		ConflictKeys: []string{"property_id", "deal_type"},
	}, rows)
	return eris.Wrapf(err, "postgres: upsert clean rows %s", dealType)
}

func (s *PostgresStore) ListClean(ctx context.Context, dealType model.DealType) ([]model.PropertyRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM listings.properties_clean WHERE deal_type = $1 ORDER BY property_id`,
		string(dealType),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query clean rows %s", dealType)
	}
	defer rows.Close()

	var out []model.PropertyRow
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan clean row")
		}
		var r model.PropertyRow
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal clean row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate clean rows")
}

func (s *PostgresStore) LogRun(ctx context.Context, run CleanRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO listings.clean_runs (id, deal_type, records, properties, kept, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, string(run.DealType), run.Records, run.Properties, run.Kept,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: insert clean run")
}
