package search

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/metrics"
)

const (
	defaultLatestLimit = 10
	latestYearProbes   = 4
	latestYearsBack    = 6
)

var latestKeywordProbes = []string{"action", "drama", "thriller", "comedy", "adventure", "sci-fi", "horror", "romance"}

type LatestRequest struct {
	Type    domain.MediaType
	Limit   int
	MinYear int
}

type LatestResult struct {
	Items        []domain.CatalogItem `json:"items"`
	Probes       int                  `json:"probes"`
	FailedProbes int                  `json:"failedProbes"`
}

// LatestReleases gathers recent titles by probing recent years and popular
// keywords, newest first. A failed probe is skipped; an error is returned
// only when every probe failed.
func (s *Service) LatestReleases(ctx context.Context, req LatestRequest) (LatestResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLatestLimit
	}
	mediaType := req.Type
	if mediaType == domain.MediaAny {
		mediaType = domain.MediaMovie
	}
	currentYear := s.now().Year()
	minYear := req.MinYear
	if minYear <= 0 {
		minYear = currentYear - latestYearsBack
	}
	target := (limit*3 + 1) / 2

	ctx, span := otel.Tracer(tracerName).Start(ctx, "discover.latest")
	defer span.End()
	span.SetAttributes(attribute.String("type", string(mediaType)), attribute.Int("limit", limit))
	started := time.Now()
	defer func() {
		metrics.DiscoveryRunDuration.WithLabelValues("latest").Observe(time.Since(started).Seconds())
	}()

	probes := make([]string, 0, latestYearProbes+len(latestKeywordProbes))
	for i := 0; i < latestYearProbes; i++ {
		probes = append(probes, strconv.Itoa(currentYear-i))
	}
	probes = append(probes, latestKeywordProbes...)

	pacer := s.newPacer()
	var (
		result  LatestResult
		items   []domain.CatalogItem
		lastErr error
	)
	for _, probe := range probes {
		if len(items) >= target {
			break
		}
		query, err := BuildQuery(Filters{Text: probe, Type: mediaType, Page: 1})
		if err != nil {
			continue
		}
		result.Probes++
		page, _, err := s.fetch.fetchPage(ctx, query, pacer)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return LatestResult{}, ctxErr
			}
			if !errors.Is(err, domain.ErrNotFound) {
				result.FailedProbes++
				lastErr = err
			}
			continue
		}
		recent := make([]domain.CatalogItem, 0, len(page.Items))
		for _, item := range page.Items {
			if item.ReleaseYear() >= minYear {
				recent = append(recent, item)
			}
		}
		items = domain.MergeUnique(items, recent)
	}

	if result.Probes > 0 && result.FailedProbes == result.Probes {
		return result, lastErr
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ReleaseYear() > items[j].ReleaseYear()
	})
	if len(items) > limit {
		items = items[:limit]
	}
	result.Items = items
	return result, nil
}
