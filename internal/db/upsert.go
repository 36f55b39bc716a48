package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes one bulk upsert target.
type UpsertConfig struct {
	// Table is the target, optionally schema-qualified.
	Table string

	// Columns are the loaded columns, in row order.
	Columns []string

	// ConflictKeys name the unique key deciding insert versus update.
	ConflictKeys []string

	// UpdateCols restricts which columns an update touches. Empty means
	// every non-key column.
	UpdateCols []string
}

// BulkUpsert loads rows through a transaction-scoped staging table and
// merges them into the target with INSERT ... ON CONFLICT. COPY cannot
// express conflict handling itself, so the staging hop keeps bulk speed
// while clean-table reloads stay idempotent.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: begin upsert")
	}
	defer tx.Rollback(ctx)

	staging := stagingName(cfg.Table)
	createSQL := fmt.Sprintf(
		`CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP`,
		pgx.Identifier{staging}.Sanitize(),
		tableIdent(cfg.Table).Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: create staging table for %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{staging}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: copy into staging for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, mergeSQL(cfg, staging))
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge into %s", cfg.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: commit upsert")
	}
	return tag.RowsAffected(), nil
}

func stagingName(table string) string {
	return "_stage_" + strings.ReplaceAll(table, ".", "_")
}

func mergeSQL(cfg UpsertConfig, staging string) string {
	updateCols := cfg.UpdateCols
	if len(updateCols) == 0 {
		keys := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			keys[k] = true
		}
		for _, c := range cfg.Columns {
			if !keys[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	sets := make([]string, 0, len(updateCols))
	for _, c := range updateCols {
		q := pgx.Identifier{c}.Sanitize()
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}

	return fmt.Sprintf(
		`INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s`,
		tableIdent(cfg.Table).Sanitize(),
		quoteJoin(cfg.Columns),
		quoteJoin(cfg.Columns),
		pgx.Identifier{staging}.Sanitize(),
		quoteJoin(cfg.ConflictKeys),
		strings.Join(sets, ", "),
	)
}

func quoteJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
