// Package sanitize turns raw user input into values that are safe to use as
// cache keys and catalog request parameters.
package sanitize

import (
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

const (
	MaxQueryRunes = 200
	MinYear       = 1900
	MaxYear       = 2100
	maxTitleID    = 32
)

// DefaultPosterHosts are the image hosts the catalog serves posters from.
var DefaultPosterHosts = []string{"m.media-amazon.com", "www.imdb.com", "imdb.com"}

var (
	strictPolicy  = bluemonday.StrictPolicy()
	eventHandlers = regexp.MustCompile(`(?i)on\w+\s*=`)
	scriptScheme  = regexp.MustCompile(`(?i)javascript:`)
	htmlDataURL   = regexp.MustCompile(`(?i)data:text/html`)
)

// QueryText strips markup, script fragments and disallowed characters from a
// search string. The result holds at most MaxQueryRunes runes and
// QueryText(QueryText(s)) == QueryText(s). Input with no letter or digit
// left, such as "!!!", sanitizes to the empty string.
func QueryText(raw string) string {
	if raw == "" {
		return ""
	}
	value := strings.ReplaceAll(raw, "\x00", "")
	value = html.UnescapeString(strictPolicy.Sanitize(value))
	value = eventHandlers.ReplaceAllString(value, "")
	value = scriptScheme.ReplaceAllString(value, "")
	value = htmlDataURL.ReplaceAllString(value, "")
	value = strings.Map(keepQueryRune, value)
	value = strings.TrimSpace(value)
	value = truncateRunes(value, MaxQueryRunes)
	value = strings.TrimSpace(value)
	if strings.IndexFunc(value, isSearchable) < 0 {
		return ""
	}
	return value
}

func isSearchable(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func keepQueryRune(r rune) rune {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
		return r
	}
	switch r {
	case '-', '\'', '.', ',', '!', '?':
		return r
	}
	return -1
}

func truncateRunes(value string, limit int) string {
	count := 0
	for i := range value {
		if count == limit {
			return value[:i]
		}
		count++
	}
	return value
}

// Year validates a four digit year in [MinYear, MaxYear]. Surrounding
// whitespace is ignored. Empty input is reported as not ok.
func Year(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if len(value) != 4 {
		return "", false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return "", false
		}
	}
	year, _ := strconv.Atoi(value)
	if year < MinYear || year > MaxYear {
		return "", false
	}
	return value, true
}

func YearInt(year int) (string, bool) {
	if year < MinYear || year > MaxYear {
		return "", false
	}
	return strconv.Itoa(year), true
}

// PosterURL returns raw when it is an https URL on one of allowedHosts, and
// an empty string otherwise. An empty allow-list accepts any https host.
func PosterURL(raw string, allowedHosts []string) string {
	value := strings.TrimSpace(raw)
	if value == "" || strings.EqualFold(value, "N/A") {
		return ""
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme != "https" || parsed.Hostname() == "" {
		return ""
	}
	if len(allowedHosts) == 0 {
		return value
	}
	host := strings.ToLower(parsed.Hostname())
	for _, allowed := range allowedHosts {
		if host == strings.ToLower(strings.TrimSpace(allowed)) {
			return value
		}
	}
	return ""
}

// TitleID accepts catalog identifiers such as "tt0133093".
func TitleID(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" || len(value) > maxTitleID {
		return "", false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return "", false
		}
	}
	return value, true
}
