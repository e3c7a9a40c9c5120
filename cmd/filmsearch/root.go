package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"filmsearch/searchservice/internal/app"
	"filmsearch/searchservice/internal/search"
)

var (
	jsonOutput bool
	noColor    bool
	verbose    bool
	service    *search.Service
)

var rootCmd = &cobra.Command{
	Use:   "filmsearch",
	Short: "Search the film catalog from the terminal",
	Long: `filmsearch queries the film catalog configured by CATALOG_API_KEY and
CATALOG_BASE_URL.

Example usage:
  filmsearch search the matrix           # First page of matches
  filmsearch search alien --all          # Scroll through every page
  filmsearch title tt0133093             # Full record of one title
  filmsearch genre sci-fi --limit 5      # Titles of one genre
  filmsearch latest --type series        # Recent series
  filmsearch year 1999                   # Movies and series of a year
  filmsearch top                         # Curated titles`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}
		if list, _ := cmd.Flags().GetBool("list"); list {
			return nil
		}
		return initService()
	},
}

// Execute runs the command line.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log catalog calls to stderr")
}

func initService() error {
	cfg := app.LoadConfig()
	level := "warn"
	if verbose {
		level = "debug"
		cfg.VerboseErrors = true
	}
	logger := app.NewLogger(os.Stderr, level, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}
	svc, err := app.NewSearchService(cfg, logger)
	if err != nil {
		return err
	}
	service = svc
	return nil
}

func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
