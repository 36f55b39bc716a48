package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mosdata/listings-cli/internal/cleaner"
	"github.com/mosdata/listings-cli/internal/model"
	"github.com/mosdata/listings-cli/internal/store"
)

var (
	cleanDealType string
	cleanAll      bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Run the dataset cleaner",
	Long: `Reads raw scraped records for a deal type, resolves property identities,
merges price histories across scrapes, applies business filters, and replaces
the clean table for that deal type.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dealTypes, err := resolveDealTypes(cleanDealType, cleanAll)
		if err != nil {
			return err
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		exclusions, err := cleaner.LoadExclusions(cfg.Clean.ExclusionsPath)
		if err != nil {
			return eris.Wrap(err, "load exclusions")
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, dt := range dealTypes {
			g.Go(func() error {
				return cleanDeal(gctx, st, dt, exclusions)
			})
		}
		return g.Wait()
	},
}

func cleanDeal(ctx context.Context, st store.Store, dealType model.DealType, exclusions map[string]struct{}) error {
	log := zap.L().With(zap.String("deal_type", string(dealType)))
	started := time.Now().UTC()

	records, err := st.QueryByDealType(ctx, dealType)
	if err != nil {
		return eris.Wrapf(err, "query raw records for %s", dealType)
	}
	log.Info("raw records loaded", zap.Int("records", len(records)))

	rows, report, err := cleaner.Clean(records, cleaner.Options{
		BatchPIDs:  cfg.Clean.BatchPIDs,
		Exclusions: exclusions,
	})
	if err != nil {
		return eris.Wrapf(err, "clean %s", dealType)
	}

	if err := st.ReplaceDealType(ctx, dealType, rows); err != nil {
		return eris.Wrapf(err, "replace clean table for %s", dealType)
	}

	if err := st.LogRun(ctx, store.CleanRun{
		DealType:   dealType,
		Records:    report.Records,
		Properties: report.Properties,
		Kept:       len(rows),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}); err != nil {
		return eris.Wrapf(err, "log clean run for %s", dealType)
	}

	log.Info("clean complete",
		zap.Int("properties", report.Properties),
		zap.Int("kept", len(rows)),
		zap.Int("filtered", report.Filtered),
		zap.Int("excluded", report.Excluded),
		zap.Int("collisions", report.Collisions),
		zap.Int("skipped_pairs", report.SkippedPairs),
		zap.Int("synthesized", report.Synthesized),
	)
	return nil
}

// resolveDealTypes validates the --deal-type/--all flag pair.
func resolveDealTypes(flag string, all bool) ([]model.DealType, error) {
	if all {
		return model.AllDealTypes, nil
	}
	dt, ok := model.ParseDealType(flag)
	if !ok {
		return nil, eris.Errorf("unknown deal type %q", flag)
	}
	return []model.DealType{dt}, nil
}

func init() {
	cleanCmd.Flags().StringVar(&cleanDealType, "deal-type", "", "deal type to clean (sale_secondary, sale_primary, long_rent, short_rent)")
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "clean all deal types")
	rootCmd.AddCommand(cleanCmd)
}
