package omdb

import (
	"strconv"
	"strings"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/sanitize"
)

// Field names follow the catalog's wire format.
type titleDTO struct {
	IMDbID     string `json:"imdbID"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Type       string `json:"Type"`
	Poster     string `json:"Poster"`
	Rated      string `json:"Rated"`
	Released   string `json:"Released"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Writer     string `json:"Writer"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Language   string `json:"Language"`
	Country    string `json:"Country"`
	Awards     string `json:"Awards"`
	IMDbRating string `json:"imdbRating"`
	IMDbVotes  string `json:"imdbVotes"`
}

type searchEnvelope struct {
	Search       []titleDTO `json:"Search"`
	TotalResults string     `json:"totalResults"`
	Response     string     `json:"Response"`
	Error        string     `json:"Error"`
}

type detailEnvelope struct {
	titleDTO
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

func (c *Client) toItem(dto titleDTO) domain.CatalogItem {
	mediaType, _ := domain.ParseMediaType(dto.Type)
	return domain.CatalogItem{
		ID:         strings.TrimSpace(dto.IMDbID),
		Title:      strings.TrimSpace(dto.Title),
		Year:       strings.TrimSpace(dto.Year),
		Type:       mediaType,
		Poster:     sanitize.PosterURL(dto.Poster, c.posterHosts),
		Rated:      optional(dto.Rated),
		Released:   optional(dto.Released),
		Runtime:    optional(dto.Runtime),
		Genre:      optional(dto.Genre),
		Director:   optional(dto.Director),
		Writer:     optional(dto.Writer),
		Actors:     optional(dto.Actors),
		Plot:       optional(dto.Plot),
		Language:   optional(dto.Language),
		Country:    optional(dto.Country),
		Awards:     optional(dto.Awards),
		IMDbRating: optional(dto.IMDbRating),
		IMDbVotes:  optional(dto.IMDbVotes),
	}
}

// optional drops the catalog's "N/A" placeholder.
func optional(value string) string {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "N/A") {
		return ""
	}
	return value
}

func parseTotal(raw string) int {
	total, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || total < 0 {
		return 0
	}
	return total
}
