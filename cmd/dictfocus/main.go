package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/v0xg/dictfocus/internal/config"
)

var (
	flags   *config.Flags
	verbose bool
	limit   int
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "dictfocus",
		Short: "Look up words in a desktop dictionary without losing focus",
		Long: `dictfocus runs a local HTTP endpoint that hands a word or phrase to a
dictionary app (EasyDict by default) and then puts keyboard focus, and
optionally the pointer, back where they were.

Example:
  dictfocus serve --listen 127.0.0.1:8080
  curl 'http://127.0.0.1:8080/?text=serendipity'`,
		SilenceUsage: true,
	}
	flags = config.BindFlags(rootCmd.PersistentFlags())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lookup HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	lookupCmd := &cobra.Command{
		Use:   "lookup <text...>",
		Short: "Run one lookup sequence from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runLookup,
	}
	lookupCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show each step of the sequence")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent lookups",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")

	rootCmd.AddCommand(serveCmd, lookupCmd, historyCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
