package domain

import (
	"strings"
)

// PageSize is the fixed number of items the catalog returns per search page.
const PageSize = 10

// NoImage marks a title without a usable poster.
const NoImage = ""

type MediaType string

const (
	MediaAny     MediaType = ""
	MediaMovie   MediaType = "movie"
	MediaSeries  MediaType = "series"
	MediaEpisode MediaType = "episode"
)

// ParseMediaType maps free-form filter input onto a MediaType.
// Empty, "all" and "any" select every type.
func ParseMediaType(raw string) (MediaType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all", "any":
		return MediaAny, true
	case "movie", "movies":
		return MediaMovie, true
	case "series", "tv":
		return MediaSeries, true
	case "episode", "episodes":
		return MediaEpisode, true
	default:
		return MediaAny, false
	}
}

// SearchQuery is a validated search request. Build a new value for every change.
type SearchQuery struct {
	Text string    `json:"text"`
	Year string    `json:"year,omitempty"`
	Type MediaType `json:"type,omitempty"`
	Page int       `json:"page"`
}

func (q SearchQuery) WithPage(page int) SearchQuery {
	if page < 1 {
		page = 1
	}
	q.Page = page
	return q
}

type CatalogItem struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Year   string    `json:"year,omitempty"`
	Type   MediaType `json:"type,omitempty"`
	Poster string    `json:"poster,omitempty"`

	// Populated by a detail fetch only.
	Rated      string `json:"rated,omitempty"`
	Released   string `json:"released,omitempty"`
	Runtime    string `json:"runtime,omitempty"`
	Genre      string `json:"genre,omitempty"`
	Director   string `json:"director,omitempty"`
	Writer     string `json:"writer,omitempty"`
	Actors     string `json:"actors,omitempty"`
	Plot       string `json:"plot,omitempty"`
	Language   string `json:"language,omitempty"`
	Country    string `json:"country,omitempty"`
	Awards     string `json:"awards,omitempty"`
	IMDbRating string `json:"imdbRating,omitempty"`
	IMDbVotes  string `json:"imdbVotes,omitempty"`
}

// HasPoster reports whether the item carries a usable poster URL.
func (i CatalogItem) HasPoster() bool {
	return i.Poster != NoImage
}

// ReleaseYear returns the leading four-digit year, or 0. Ranges such as
// "2008–2013" resolve to their first year.
func (i CatalogItem) ReleaseYear() int {
	value := strings.TrimSpace(i.Year)
	if len(value) < 4 {
		return 0
	}
	year := 0
	for _, c := range value[:4] {
		if c < '0' || c > '9' {
			return 0
		}
		year = year*10 + int(c-'0')
	}
	return year
}

// Genres splits the provider's comma separated genre list.
func (i CatalogItem) Genres() []string {
	if strings.TrimSpace(i.Genre) == "" {
		return nil
	}
	parts := strings.Split(i.Genre, ",")
	genres := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" || strings.EqualFold(value, "N/A") {
			continue
		}
		genres = append(genres, value)
	}
	if len(genres) == 0 {
		return nil
	}
	return genres
}

type ResultPage struct {
	Items          []CatalogItem `json:"items"`
	TotalAvailable int           `json:"totalAvailable"`
	Query          SearchQuery   `json:"query"`
}

func (p ResultPage) TotalPages() int {
	return TotalPages(p.TotalAvailable)
}

func TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}

// Clone returns a copy whose item slice can be mutated independently.
func (p ResultPage) Clone() ResultPage {
	cloned := p
	if p.Items != nil {
		cloned.Items = append([]CatalogItem(nil), p.Items...)
	}
	return cloned
}

// AccumulatedResultSet grows across successive pages of one query and
// holds each id at most once, in first-seen order.
type AccumulatedResultSet struct {
	Items     []CatalogItem `json:"items"`
	Exhausted bool          `json:"exhausted"`
	NextPage  int           `json:"nextPage"`
}

func NewAccumulatedResultSet() *AccumulatedResultSet {
	return &AccumulatedResultSet{NextPage: 1}
}

// Merge appends items whose ids are not yet present and returns how many survived.
func (s *AccumulatedResultSet) Merge(items []CatalogItem) int {
	before := len(s.Items)
	s.Items = MergeUnique(s.Items, items)
	return len(s.Items) - before
}

func (s *AccumulatedResultSet) Snapshot() AccumulatedResultSet {
	return AccumulatedResultSet{
		Items:     append([]CatalogItem(nil), s.Items...),
		Exhausted: s.Exhausted,
		NextPage:  s.NextPage,
	}
}

// MergeUnique appends the items from src whose ids are absent from dst (and
// from earlier src entries). Items without an id are dropped.
func MergeUnique(dst, src []CatalogItem) []CatalogItem {
	seen := make(map[string]struct{}, len(dst)+len(src))
	for _, item := range dst {
		seen[item.ID] = struct{}{}
	}
	for _, item := range src {
		if item.ID == "" {
			continue
		}
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		dst = append(dst, item)
	}
	return dst
}
