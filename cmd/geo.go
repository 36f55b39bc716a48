package main

import "github.com/spf13/cobra"

var geoCmd = &cobra.Command{
	Use:   "geo",
	Short: "Geospatial enrichment and reference data loading",
	Long:  "Compute location features for the clean table and load subway/district reference data.",
}

func init() { rootCmd.AddCommand(geoCmd) }
