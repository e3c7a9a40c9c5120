package search

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/semaphore"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/metrics"
)

const maxConcurrentCurated = 3

// DefaultCuratedTitles is the hand-picked top rated list.
var DefaultCuratedTitles = []string{
	"The Lord of the Rings: The Return of the King",
	"Everything Everywhere All at Once",
	"Inception",
	"Interstellar",
	"The Lord of the Rings: The Fellowship of the Ring",
	"Fight Club",
	"Inglourious Basterds",
	"The Godfather Part II",
}

// Curated resolves each curated title to its best catalog match, in list
// order. Titles that fail to resolve are left out; an error is returned only
// when none resolved.
func (s *Service) Curated(ctx context.Context) ([]domain.CatalogItem, error) {
	titles := s.curatedTitles
	if len(titles) == 0 {
		return nil, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "discover.curated")
	defer span.End()
	started := time.Now()
	defer func() {
		metrics.DiscoveryRunDuration.WithLabelValues("curated").Observe(time.Since(started).Seconds())
	}()

	pacer := s.newPacer()
	resolved := make([]*domain.CatalogItem, len(titles))
	errs := make([]error, len(titles))
	sem := semaphore.NewWeighted(maxConcurrentCurated)
	var wg sync.WaitGroup

	for i, title := range titles {
		wg.Add(1)
		go func(i int, title string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				errs[i] = err
				return
			}
			defer sem.Release(1)

			query, err := BuildQuery(Filters{Text: title, Page: 1})
			if err != nil {
				errs[i] = err
				return
			}
			page, _, err := s.fetch.fetchPage(ctx, query, pacer)
			if err != nil {
				errs[i] = err
				return
			}
			if item, ok := bestMatch(query.Text, page.Items); ok {
				resolved[i] = &item
			} else {
				errs[i] = domain.ErrNotFound
			}
		}(i, title)
	}
	wg.Wait()

	items := make([]domain.CatalogItem, 0, len(titles))
	for _, item := range resolved {
		if item != nil {
			items = domain.MergeUnique(items, []domain.CatalogItem{*item})
		}
	}
	if len(items) == 0 {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}
	return items, nil
}

// bestMatch picks the item whose title is the closest fuzzy match for want,
// falling back to the catalog's first result.
func bestMatch(want string, items []domain.CatalogItem) (domain.CatalogItem, bool) {
	if len(items) == 0 {
		return domain.CatalogItem{}, false
	}
	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = item.Title
	}
	ranks := fuzzy.RankFindNormalizedFold(want, titles)
	if len(ranks) == 0 {
		return items[0], true
	}
	sort.Stable(ranks)
	return items[ranks[0].OriginalIndex], true
}
