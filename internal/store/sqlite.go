package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mosdata/listings-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Listings and clean
// rows are stored as JSON documents alongside the indexed filter columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS offers_raw (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	deal_type  TEXT NOT NULL,
	url        TEXT NOT NULL,
	scraped_at DATETIME NOT NULL,
	doc        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS properties_clean (
	property_id TEXT NOT NULL,
	deal_type   TEXT NOT NULL,
	price_first REAL,
	price_last  REAL,
	doc         TEXT NOT NULL,
	PRIMARY KEY (property_id, deal_type)
);

CREATE TABLE IF NOT EXISTS clean_runs (
	id          TEXT PRIMARY KEY,
	deal_type   TEXT NOT NULL,
	records     INTEGER NOT NULL,
	properties  INTEGER NOT NULL,
	kept        INTEGER NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_offers_raw_deal_type ON offers_raw(deal_type);
CREATE INDEX IF NOT EXISTS idx_offers_raw_url ON offers_raw(url);
CREATE INDEX IF NOT EXISTS idx_properties_clean_deal_type ON properties_clean(deal_type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertListings(ctx context.Context, listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO offers_raw (deal_type, url, scraped_at, doc) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for i := range listings {
		doc, err := json.Marshal(&listings[i])
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal listing %s", listings[i].URL)
		}
		if _, err := stmt.ExecContext(ctx,
			string(listings[i].DealType), listings[i].URL, listings[i].ScrapeLoadedAt.UTC(), string(doc),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert listing %s", listings[i].URL)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit insert")
}

func (s *SQLiteStore) QueryByDealType(ctx context.Context, dealType model.DealType) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM offers_raw WHERE deal_type = ? ORDER BY id`,
		string(dealType),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query offers %s", dealType)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan offer")
		}
		var l model.Listing
		if err := json.Unmarshal([]byte(doc), &l); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal offer")
		}
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "sqlite: iterate offers")
}

func (s *SQLiteStore) ReplaceDealType(ctx context.Context, dealType model.DealType, propertyRows []model.PropertyRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM properties_clean WHERE deal_type = ?`, string(dealType),
	); err != nil {
		return eris.Wrapf(err, "sqlite: clear clean rows %s", dealType)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO properties_clean (property_id, deal_type, price_first, price_last, doc) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare clean insert")
	}
	defer stmt.Close()

	for i := range propertyRows {
		doc, err := json.Marshal(&propertyRows[i])
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal row %s", propertyRows[i].PropertyID)
		}
		if _, err := stmt.ExecContext(ctx,
			propertyRows[i].PropertyID, string(dealType),
			sqliteNum(propertyRows[i].PriceFirst), sqliteNum(propertyRows[i].PriceLast), string(doc),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert row %s", propertyRows[i].PropertyID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit clean rows")
}

// sqliteNum maps an unknown price to NULL; SQLite has no NaN value.
func sqliteNum(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func (s *SQLiteStore) ListClean(ctx context.Context, dealType model.DealType) ([]model.PropertyRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM properties_clean WHERE deal_type = ? ORDER BY property_id`,
		string(dealType),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query clean rows %s", dealType)
	}
	defer rows.Close()

	var out []model.PropertyRow
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan clean row")
		}
		var r model.PropertyRow
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal clean row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate clean rows")
}

func (s *SQLiteStore) LogRun(ctx context.Context, run CleanRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clean_runs (id, deal_type, records, properties, kept, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.DealType), run.Records, run.Properties, run.Kept,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert clean run")
}
