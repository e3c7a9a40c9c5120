package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/search"
)

var titleCmd = &cobra.Command{
	Use:   "title ID",
	Short: "Show the full record of one title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := service.Detail(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(stdout(cmd), item)
		}
		newPrinter(stdout(cmd), cmd.ErrOrStderr()).Header(item.Title)
		return renderTitle(stdout(cmd), item)
	},
}

var genreCmd = &cobra.Command{
	Use:   "genre NAME",
	Short: "Find titles of one genre",
	Long: `Find titles of one genre by searching its keywords and checking the
genre list of every candidate. This makes one catalog call per candidate,
so it is slow on a cold cache.

Examples:
  filmsearch genre --list
  filmsearch genre sci-fi --limit 5
  filmsearch genre "science fiction" --type series`,
	Args: func(cmd *cobra.Command, args []string) error {
		if list, _ := cmd.Flags().GetBool("list"); list {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runGenre,
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show recent releases",
	RunE: func(cmd *cobra.Command, args []string) error {
		mediaType, err := typeFlag(cmd, domain.MediaMovie)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		result, err := service.LatestReleases(cmd.Context(), search.LatestRequest{Type: mediaType, Limit: limit})
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(stdout(cmd), result)
		}
		p := newPrinter(stdout(cmd), cmd.ErrOrStderr())
		if result.FailedProbes > 0 {
			p.Warning("%d of %d catalog lookups failed", result.FailedProbes, result.Probes)
		}
		p.Header("Latest releases")
		return renderItems(stdout(cmd), result.Items)
	},
}

var yearCmd = &cobra.Command{
	Use:   "year YEAR",
	Short: "List movies and series released in a year",
	Args:  cobra.ExactArgs(1),
	RunE:  runYear,
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the curated title list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := service.Curated(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(stdout(cmd), items)
		}
		newPrinter(stdout(cmd), cmd.ErrOrStderr()).Header("Top titles")
		return renderItems(stdout(cmd), items)
	},
}

func init() {
	rootCmd.AddCommand(titleCmd, genreCmd, latestCmd, yearCmd, topCmd)

	genreCmd.Flags().Bool("list", false, "list the known genres")
	genreCmd.Flags().String("type", "", "movie, series or episode")
	genreCmd.Flags().Int("limit", 10, "maximum number of titles")

	latestCmd.Flags().String("type", "movie", "movie, series or episode")
	latestCmd.Flags().Int("limit", 10, "maximum number of titles")

	yearCmd.Flags().Int("pages", 1, "pages to load per list")
}

func runGenre(cmd *cobra.Command, args []string) error {
	w := stdout(cmd)
	if list, _ := cmd.Flags().GetBool("list"); list {
		if jsonOutput {
			return writeJSON(w, search.Genres)
		}
		table := newTable(w)
		table.Header([]string{"ID", "Name"})
		rows := make([][]string, 0, len(search.Genres))
		for _, genre := range search.Genres {
			rows = append(rows, []string{genre.ID, genre.Name})
		}
		if err := table.Bulk(rows); err != nil {
			return err
		}
		return table.Render()
	}

	mediaType, err := typeFlag(cmd, domain.MediaAny)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	result, err := service.DiscoverGenre(cmd.Context(), search.GenreRequest{
		Genre: args[0],
		Type:  mediaType,
		Limit: limit,
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(w, result)
	}
	p := newPrinter(w, cmd.ErrOrStderr())
	if len(result.Items) == 0 {
		p.Info("No %s titles found.", result.Genre.Name)
		return nil
	}
	p.Header(result.Genre.Name)
	return renderItems(w, result.Items)
}

func runYear(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[0])
	if err != nil || len(args[0]) != 4 {
		return domain.ErrInvalidYear
	}
	pages, _ := cmd.Flags().GetInt("pages")

	lists, err := service.YearLists(year)
	if err != nil {
		return err
	}
	snapshot, err := lists.Load(cmd.Context())
	if err != nil {
		return err
	}
	p := newPrinter(stdout(cmd), cmd.ErrOrStderr())
	for i := 1; i < pages; i++ {
		for _, kind := range []domain.MediaType{domain.MediaMovie, domain.MediaSeries} {
			if _, err := lists.LoadMore(cmd.Context(), kind); err != nil {
				p.Warning("%s list: %s", kind, search.UserMessage(err))
			}
		}
		snapshot = lists.Snapshot()
	}

	if jsonOutput {
		return writeJSON(stdout(cmd), snapshot)
	}
	p.Header(fmt.Sprintf("Movies of %d", year))
	if err := renderItems(stdout(cmd), snapshot.Movies.Items); err != nil {
		return err
	}
	p.Header(fmt.Sprintf("Series of %d", year))
	return renderItems(stdout(cmd), snapshot.Series.Items)
}

func typeFlag(cmd *cobra.Command, fallback domain.MediaType) (domain.MediaType, error) {
	raw, _ := cmd.Flags().GetString("type")
	if raw == "" {
		return fallback, nil
	}
	mediaType, ok := domain.ParseMediaType(raw)
	if !ok {
		return "", fmt.Errorf("unknown type %q: use movie, series or episode", raw)
	}
	return mediaType, nil
}
