package domain

import "time"

// CatalogDiagnostics is a point-in-time view of catalog health and cache usage.
type CatalogDiagnostics struct {
	Configured          bool       `json:"configured"`
	Available           bool       `json:"available"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	BlockedUntil        *time.Time `json:"blockedUntil,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs"`
	TotalRequests       int64      `json:"totalRequests"`
	TotalFailures       int64      `json:"totalFailures"`
	RateLimitCount      int64      `json:"rateLimitCount"`
	TimeoutCount        int64      `json:"timeoutCount"`
	CacheEntries        int        `json:"cacheEntries"`
	CacheCapacity       int        `json:"cacheCapacity"`
}
