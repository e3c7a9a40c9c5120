package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/sanitize"
)

// YearLists holds the movie and series lists of one release year.
type YearLists struct {
	Year   int
	movies *Accumulator
	series *Accumulator
	pacer  *rate.Limiter
}

type YearSnapshot struct {
	Year   int                         `json:"year"`
	Movies domain.AccumulatedResultSet `json:"movies"`
	Series domain.AccumulatedResultSet `json:"series"`
}

// YearLists prepares the lists for year, which must lie between 1900 and
// the current year.
func (s *Service) YearLists(year int) (*YearLists, error) {
	text, ok := sanitize.YearInt(year)
	if !ok || year > s.now().Year() {
		return nil, domain.ErrInvalidYear
	}
	pacer := s.newPacer()
	return &YearLists{
		Year:   year,
		movies: newAccumulator(s.fetch, pacer, domain.SearchQuery{Text: text, Type: domain.MediaMovie, Page: 1}),
		series: newAccumulator(s.fetch, pacer, domain.SearchQuery{Text: text, Type: domain.MediaSeries, Page: 1}),
		pacer:  pacer,
	}, nil
}

// Load fetches the first page of both lists concurrently. It fails only
// when both lists failed.
func (y *YearLists) Load(ctx context.Context) (YearSnapshot, error) {
	var movieErr, seriesErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, movieErr = y.movies.LoadMore(gctx)
		return nil
	})
	g.Go(func() error {
		_, seriesErr = y.series.LoadMore(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return y.Snapshot(), err
	}
	if movieErr != nil && seriesErr != nil {
		return y.Snapshot(), movieErr
	}
	return y.Snapshot(), nil
}

// LoadMore scrolls the list of one media type.
func (y *YearLists) LoadMore(ctx context.Context, kind domain.MediaType) (domain.AccumulatedResultSet, error) {
	switch kind {
	case domain.MediaMovie:
		return y.movies.LoadMore(ctx)
	case domain.MediaSeries:
		return y.series.LoadMore(ctx)
	default:
		return domain.AccumulatedResultSet{}, fmt.Errorf("year lists hold movies and series, not %q", kind)
	}
}

func (y *YearLists) Snapshot() YearSnapshot {
	return YearSnapshot{
		Year:   y.Year,
		Movies: y.movies.Snapshot(),
		Series: y.series.Snapshot(),
	}
}
