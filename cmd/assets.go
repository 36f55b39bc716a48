package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mosdata/listings-cli/internal/assets"
	"github.com/mosdata/listings-cli/internal/fetcher"
	"github.com/mosdata/listings-cli/internal/model"
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Listing photo mirror",
}

var assetsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror listing photos to local storage",
	Long: `Downloads every photo referenced by the clean table that is not already
mirrored locally. Individual download failures are logged and skipped; the
state file records what has been mirrored so reruns are incremental.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		var rows []model.PropertyRow
		for _, dt := range model.AllDealTypes {
			dtRows, err := st.ListClean(ctx, dt)
			if err != nil {
				return eris.Wrapf(err, "list clean rows for %s", dt)
			}
			rows = append(rows, dtRows...)
		}

		state, err := assets.LoadState(cfg.Assets.StatePath)
		if err != nil {
			return eris.Wrap(err, "load asset state")
		}

		// The syncer owns retries, so the transport gets a single attempt.
		httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			Timeout:      60 * time.Second,
			MaxAttempts:  1,
			RateLimiters: fetcher.DefaultRateLimiters(),
		})
		ftpFetcher := fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: 60 * time.Second})

		syncer := assets.NewSyncer(cfg.Assets, httpFetcher, ftpFetcher, state)
		report, err := syncer.Sync(ctx, rows)
		if err != nil {
			return eris.Wrap(err, "sync assets")
		}

		if err := assets.SaveState(cfg.Assets.StatePath, syncer.State()); err != nil {
			return eris.Wrap(err, "save asset state")
		}

		zap.L().Info("asset sync complete",
			zap.Int("requested", report.Requested),
			zap.Int("downloaded", report.Downloaded),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
		)
		return nil
	},
}

func init() {
	assetsCmd.AddCommand(assetsSyncCmd)
	rootCmd.AddCommand(assetsCmd)
}
