package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mosdata/listings-cli/internal/config"
	"github.com/mosdata/listings-cli/internal/model"
)

// CleanRun records one execution of the dataset cleaner, for auditability of
// what produced the current clean table.
type CleanRun struct {
	ID         string         `json:"id"`
	DealType   model.DealType `json:"deal_type"`
	Records    int            `json:"records"`
	Properties int            `json:"properties"`
	Kept       int            `json:"kept"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Store defines the persistence boundary of the pipeline. Raw scraped offers
// are retrievable by simple equality filter on deal type; clean rows are
// replaced wholesale per deal type (the cleaner has no incremental mode).
type Store interface {
	// Raw scraped records
	InsertListings(ctx context.Context, listings []model.Listing) error
	QueryByDealType(ctx context.Context, dealType model.DealType) ([]model.Listing, error)

	// Clean table
	ReplaceDealType(ctx context.Context, dealType model.DealType, rows []model.PropertyRow) error
	ListClean(ctx context.Context, dealType model.DealType) ([]model.PropertyRow, error)

	// Run log
	LogRun(ctx context.Context, run CleanRun) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs a Store from configuration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
