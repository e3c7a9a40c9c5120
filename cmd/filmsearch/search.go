package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/search"
)

const defaultMaxPages = 5

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search titles by name",
	Long: `Search titles by name, optionally narrowed by year and type.

Examples:
  filmsearch search the matrix                 # First page
  filmsearch search alien --type movie --page 2
  filmsearch search star wars --year 1977
  filmsearch search batman --all --max-pages 3 # Accumulate pages`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("year", "", "four digit release year")
	searchCmd.Flags().String("type", "", "movie, series or episode")
	searchCmd.Flags().Int("page", 1, "result page")
	searchCmd.Flags().Bool("all", false, "keep loading pages until the results run out")
	searchCmd.Flags().Int("max-pages", defaultMaxPages, "page budget for --all")
}

func runSearch(cmd *cobra.Command, args []string) error {
	year, _ := cmd.Flags().GetString("year")
	rawType, _ := cmd.Flags().GetString("type")
	page, _ := cmd.Flags().GetInt("page")
	all, _ := cmd.Flags().GetBool("all")
	maxPages, _ := cmd.Flags().GetInt("max-pages")

	mediaType, ok := domain.ParseMediaType(rawType)
	if !ok {
		return fmt.Errorf("unknown type %q: use movie, series or episode", rawType)
	}
	filters := search.Filters{
		Text: strings.Join(args, " "),
		Year: year,
		Type: mediaType,
		Page: page,
	}

	var opts []search.ControllerOption
	if all {
		opts = append(opts, search.WithAccumulation())
	}
	ctl := service.NewController(cmd.Context(), opts...)
	state := ctl.SetFilters(cmd.Context(), filters)
	if all {
		state = scrollAll(cmd, ctl, state, maxPages)
	}
	if state.Err != nil && len(state.Items) == 0 {
		return state.Err
	}

	w := stdout(cmd)
	if jsonOutput {
		return writeJSON(w, state)
	}
	p := newPrinter(w, cmd.ErrOrStderr())
	if state.Err != nil {
		p.Warning("%s", search.UserMessage(state.Err))
	}
	if all {
		p.Header(fmt.Sprintf("%d of %d results for %q", len(state.Items), state.TotalResults, filters.Text))
	} else {
		p.Header(fmt.Sprintf("Page %d of %d (%d results) for %q", state.Filters.Page, state.TotalPages, state.TotalResults, filters.Text))
	}
	return renderItems(w, state.Items)
}

// scrollAll loads further pages until the list is exhausted, a page fails
// or maxPages pages have been shown.
func scrollAll(cmd *cobra.Command, ctl *search.Controller, state search.State, maxPages int) search.State {
	for loaded := 1; loaded < maxPages && state.Err == nil && !state.Exhausted; loaded++ {
		state = ctl.LoadMore(cmd.Context())
	}
	return state
}
