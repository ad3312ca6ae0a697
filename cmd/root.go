// Package cmd implements the CLI commands for postpress using Cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/postpress/config"
	"github.com/gaurav-prasanna/postpress/core"
	"github.com/gaurav-prasanna/postpress/core/fetch"
)

// Persistent flags.
var (
	flagVerbose bool
	flagConfig  string
)

// settings is loaded once per invocation before any command runs.
var settings = core.DefaultEngineSettings()

var rootCmd = &cobra.Command{
	Use:   "postpress",
	Short: "postpress — export a publication's posts as EPUB, TXT or PDF",
	Long: `postpress discovers a publication's posts, fetches and normalizes each
one, and packages them as e-books or plain text, one file per post or a
single combined volume.

Usage:
  postpress posts <publication>
  postpress export <publication> [flags]`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		loaded, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		settings = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log progress to stderr")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Engine settings file (default: "+config.DefaultPath()+")")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newFetcher() *fetch.HTTPFetcher {
	return fetch.New(
		fetch.WithUserAgent(settings.UserAgent),
		fetch.WithRateLimit(settings.RequestsPerSecond, settings.Burst),
	)
}
