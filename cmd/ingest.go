package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/springfield-isd/grants-assistant/internal/ingest"
)

var (
	ingestPattern string
	ingestOut     string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Convert grants.gov CSV exports into the JSON dataset",
	Long: `Reads grants-search-*.csv exports, keeps posted/forecasted opportunities
open to independent school districts, and writes the combined deduplicated
JSON dataset the server loads at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		out := ingestOut
		if out == "" {
			out = cfg.Data.GrantsPath
		}

		n, err := ingest.Run(cmd.Context(), ingestPattern, out)
		if err != nil {
			return err
		}

		fmt.Printf("Wrote %d grant records to %s\n", n, out)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestPattern, "pattern", "grants-search-*.csv", "glob pattern for CSV exports")
	ingestCmd.Flags().StringVar(&ingestOut, "out", "", "output JSON path (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
