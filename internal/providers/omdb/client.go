// Package omdb is the catalog client for OMDb-compatible APIs.
package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/metrics"
	"filmsearch/searchservice/internal/sanitize"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "filmsearch/1.0"
	maxBodyBytes     = 512 * 1024
	maxErrorBytes    = 1024
)

type Config struct {
	APIKey      string
	BaseURL     string
	Client      *http.Client
	Timeout     time.Duration
	UserAgent   string
	PosterHosts []string
}

type Client struct {
	apiKey      string
	baseURL     string
	http        *http.Client
	userAgent   string
	posterHosts []string
}

// NewClient validates cfg. A missing key or base URL yields
// domain.ErrConfiguration and no client.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, domain.NewCatalogError(domain.ErrConfiguration, 0, "api key is not set", nil)
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, domain.NewCatalogError(domain.ErrConfiguration, 0, "base url is not set", nil)
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, domain.NewCatalogError(domain.ErrConfiguration, 0, "base url is invalid", err)
	}

	httpClient := cfg.Client
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	posterHosts := cfg.PosterHosts
	if posterHosts == nil {
		posterHosts = sanitize.DefaultPosterHosts
	}

	return &Client{
		apiKey:      apiKey,
		baseURL:     baseURL,
		http:        httpClient,
		userAgent:   userAgent,
		posterHosts: posterHosts,
	}, nil
}

// Search fetches one page of title matches.
func (c *Client) Search(ctx context.Context, query domain.SearchQuery) (domain.ResultPage, error) {
	params := url.Values{}
	params.Set("s", query.Text)
	if query.Type != domain.MediaAny {
		params.Set("type", string(query.Type))
	}
	if query.Year != "" {
		params.Set("y", query.Year)
	}
	if query.Page >= 1 {
		params.Set("page", strconv.Itoa(query.Page))
	}

	var envelope searchEnvelope
	if err := c.get(ctx, "search", params, &envelope); err != nil {
		return domain.ResultPage{}, err
	}
	if err := classifyResponse("search", envelope.Response, envelope.Error); err != nil {
		return domain.ResultPage{}, err
	}

	items := make([]domain.CatalogItem, 0, len(envelope.Search))
	for _, dto := range envelope.Search {
		item := c.toItem(dto)
		if item.ID == "" {
			continue
		}
		items = append(items, item)
	}
	metrics.CatalogRequestsTotal.WithLabelValues("search", "ok").Inc()
	return domain.ResultPage{
		Items:          items,
		TotalAvailable: parseTotal(envelope.TotalResults),
		Query:          query,
	}, nil
}

// Detail fetches the full record of one title.
func (c *Client) Detail(ctx context.Context, id string) (domain.CatalogItem, error) {
	params := url.Values{}
	params.Set("i", id)

	var envelope detailEnvelope
	if err := c.get(ctx, "detail", params, &envelope); err != nil {
		return domain.CatalogItem{}, err
	}
	if err := classifyResponse("detail", envelope.Response, envelope.Error); err != nil {
		return domain.CatalogItem{}, err
	}
	item := c.toItem(envelope.titleDTO)
	if item.ID == "" {
		item.ID = id
	}
	metrics.CatalogRequestsTotal.WithLabelValues("detail", "ok").Inc()
	return item, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	params.Set("apikey", c.apiKey)
	reqURL := c.baseURL
	if strings.Contains(reqURL, "?") {
		reqURL += "&" + params.Encode()
	} else {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return c.fail(endpoint, domain.ErrConfiguration, 0, "", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	started := time.Now()
	resp, err := c.http.Do(req)
	metrics.CatalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
	if err != nil {
		return c.fail(endpoint, domain.ErrTransport, 0, "", stripKey(err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return c.fail(endpoint, domain.ErrAuth, resp.StatusCode, readSnippet(resp.Body), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return c.fail(endpoint, domain.ErrRateLimited, resp.StatusCode, readSnippet(resp.Body), nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return c.fail(endpoint, domain.ErrTransport, resp.StatusCode, readSnippet(resp.Body), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.fail(endpoint, domain.ErrTransport, resp.StatusCode, "", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(endpoint, domain.ErrTransport, resp.StatusCode, "invalid response body", err)
	}
	return nil
}

func (c *Client) fail(endpoint string, kind error, status int, detail string, err error) error {
	metrics.CatalogRequestsTotal.WithLabelValues(endpoint, outcomeLabel(kind)).Inc()
	return domain.NewCatalogError(kind, status, detail, err)
}

// classifyResponse maps a Response:"False" envelope onto an error kind.
func classifyResponse(endpoint, response, message string) error {
	if strings.EqualFold(strings.TrimSpace(response), "True") {
		return nil
	}
	kind := domain.ErrNotFound
	switch lower := strings.ToLower(message); {
	case strings.Contains(lower, "api key"):
		kind = domain.ErrAuth
	case mentionsLimit(lower):
		kind = domain.ErrRateLimited
	}
	metrics.CatalogRequestsTotal.WithLabelValues(endpoint, outcomeLabel(kind)).Inc()
	return domain.NewCatalogError(kind, http.StatusOK, strings.TrimSpace(message), nil)
}

func mentionsLimit(lower string) bool {
	return strings.Contains(lower, "limit") ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "too many requests")
}

func outcomeLabel(kind error) string {
	switch {
	case errors.Is(kind, domain.ErrAuth):
		return "auth"
	case errors.Is(kind, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(kind, domain.ErrNotFound):
		return "not_found"
	case errors.Is(kind, domain.ErrConfiguration):
		return "configuration"
	default:
		return "transport"
	}
}

func readSnippet(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBytes))
	return strings.TrimSpace(string(data))
}

// stripKey removes the request URL, and with it the api key, from client errors.
func stripKey(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
