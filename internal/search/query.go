package search

import (
	"strings"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/sanitize"
)

// Filters is raw, unvalidated search input as a user typed or selected it.
type Filters struct {
	Text string           `json:"text"`
	Year string           `json:"year,omitempty"`
	Type domain.MediaType `json:"type,omitempty"`
	Page int              `json:"page"`
}

// BuildQuery sanitizes and validates filters. It is the only way raw input
// becomes a domain.SearchQuery.
func BuildQuery(filters Filters) (domain.SearchQuery, error) {
	text := sanitize.QueryText(filters.Text)
	if text == "" {
		return domain.SearchQuery{}, domain.ErrEmptyQuery
	}

	year := ""
	if strings.TrimSpace(filters.Year) != "" {
		valid, ok := sanitize.Year(filters.Year)
		if !ok {
			return domain.SearchQuery{}, domain.ErrInvalidYear
		}
		year = valid
	}

	mediaType, ok := domain.ParseMediaType(string(filters.Type))
	if !ok {
		mediaType = domain.MediaAny
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	return domain.SearchQuery{Text: text, Year: year, Type: mediaType, Page: page}, nil
}
