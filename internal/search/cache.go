package search

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/metrics"
)

const defaultCacheMaxEntries = 50

// ResultCache is the process-wide page cache shared by every controller and
// aggregation run. It is bounded and evicts the least recently used entry.
type ResultCache struct {
	entries *lru.Cache[string, domain.ResultPage]
	size    int
}

func NewResultCache(size int) *ResultCache {
	if size <= 0 {
		size = defaultCacheMaxEntries
	}
	entries, err := lru.New[string, domain.ResultPage](size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &ResultCache{entries: entries, size: size}
}

// Get returns a copy of the cached page and marks it most recently used.
func (c *ResultCache) Get(key string) (domain.ResultPage, bool) {
	page, ok := c.entries.Get(key)
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return domain.ResultPage{}, false
	}
	metrics.CacheHitsTotal.Inc()
	return page.Clone(), true
}

// Put inserts or overwrites key. At capacity the least recently used entry is evicted.
func (c *ResultCache) Put(key string, page domain.ResultPage) {
	if evicted := c.entries.Add(key, page.Clone()); evicted {
		metrics.CacheEvictionsTotal.Inc()
	}
}

func (c *ResultCache) Clear() {
	c.entries.Purge()
}

func (c *ResultCache) Len() int {
	return c.entries.Len()
}

func (c *ResultCache) Capacity() int {
	return c.size
}

// CacheKey derives the cache key for a validated query. The separators are
// characters the sanitizer never lets through, so distinct queries cannot
// produce the same key.
func CacheKey(query domain.SearchQuery) string {
	mediaType := string(query.Type)
	if mediaType == "" {
		mediaType = "all"
	}
	year := query.Year
	if year == "" {
		year = "all"
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	return strings.Join([]string{
		"q=" + cases.Fold().String(query.Text),
		"t=" + mediaType,
		"y=" + year,
		"p=" + strconv.Itoa(page),
	}, "|")
}
