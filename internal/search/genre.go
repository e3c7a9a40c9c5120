package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/metrics"
)

const (
	defaultGenreLimit  = 20
	maxGenreKeywords   = 3
	maxGenrePages      = 2
	maxGenreCandidates = 10
)

type GenreRequest struct {
	Genre string
	Type  domain.MediaType
	Limit int
}

type GenreResult struct {
	Genre   Genre                `json:"genre"`
	Items   []domain.CatalogItem `json:"items"`
	HasMore bool                 `json:"hasMore"`
}

// DiscoverGenre collects titles of one genre. It searches the genre's first
// keywords, fetches detail for each candidate and keeps those whose genre
// list matches. Matching is textual, so some titles are missed and some
// loosely related ones kept. Failed detail fetches skip the candidate; a
// failed search moves on to the next keyword. An error is returned only when
// every search failed.
func (s *Service) DiscoverGenre(ctx context.Context, req GenreRequest) (GenreResult, error) {
	genre, ok := LookupGenre(req.Genre)
	if !ok {
		return GenreResult{}, domain.ErrUnknownGenre
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultGenreLimit
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "discover.genre")
	defer span.End()
	span.SetAttributes(attribute.String("genre", genre.ID), attribute.Int("limit", limit))
	started := time.Now()
	defer func() {
		metrics.DiscoveryRunDuration.WithLabelValues("genre").Observe(time.Since(started).Seconds())
	}()

	pacer := s.newPacer()
	keywords := genre.Keywords
	if len(keywords) > maxGenreKeywords {
		keywords = keywords[:maxGenreKeywords]
	}

	var (
		items    []domain.CatalogItem
		checked  = make(map[string]struct{})
		searches int
		failures int
		lastErr  error
	)

keywordLoop:
	for _, keyword := range keywords {
		for pageNumber := 1; pageNumber <= maxGenrePages && len(items) < limit; pageNumber++ {
			query, err := BuildQuery(Filters{Text: keyword, Type: req.Type, Page: pageNumber})
			if err != nil {
				break
			}
			page, _, err := s.fetch.fetchPage(ctx, query, pacer)
			searches++
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return GenreResult{}, ctxErr
				}
				if !errors.Is(err, domain.ErrNotFound) {
					failures++
					lastErr = err
				}
				continue keywordLoop
			}
			if len(page.Items) == 0 {
				continue keywordLoop
			}

			candidates := page.Items
			if len(candidates) > maxGenreCandidates {
				candidates = candidates[:maxGenreCandidates]
			}
			for _, candidate := range candidates {
				if len(items) >= limit {
					break
				}
				if _, seen := checked[candidate.ID]; seen {
					continue
				}
				checked[candidate.ID] = struct{}{}

				detail, err := s.fetch.detail(ctx, candidate.ID, pacer)
				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return GenreResult{}, ctxErr
					}
					s.logger.Debug("skipping genre candidate", slog.String("id", candidate.ID), slog.String("kind", describeFailure(err)))
					continue
				}
				if matchesGenre(detail.Genres(), genre.ID) {
					items = append(items, detail)
				}
			}
		}
		if len(items) >= limit {
			break
		}
	}

	if len(items) == 0 && searches > 0 && failures == searches {
		return GenreResult{}, lastErr
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return GenreResult{
		Genre:   genre,
		Items:   items,
		HasMore: len(items) >= limit,
	}, nil
}
