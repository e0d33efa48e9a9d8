// Package cmd defines and implements the CLI commands for the aliscraper
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aliscraper",
		Short: "Scrapes AliExpress search results into structured product records",
		Long: `aliscraper walks AliExpress search result pages for a keyword and
extracts normalized product records: price, rating, order counts, store and
image links. Results stream to JSONL, Postgres, or Pub/Sub as pages are
processed, and the run stops as soon as the requested number of products
has been collected.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./aliscraper.yaml)")

	cmd.AddCommand(newScrapeCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
