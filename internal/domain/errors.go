package domain

import (
	"errors"
	"fmt"
)

// Local validation failures. These never reach the network.
var (
	ErrEmptyQuery   = errors.New("search query is empty")
	ErrInvalidYear  = errors.New("year must be four digits between 1900 and 2100")
	ErrInvalidID    = errors.New("title id is invalid")
	ErrUnknownGenre = errors.New("unknown genre")
)

// Catalog failure kinds. Use errors.Is against these.
var (
	ErrAuth          = errors.New("catalog rejected credentials")
	ErrRateLimited   = errors.New("catalog rate limit reached")
	ErrTransport     = errors.New("catalog request failed")
	ErrNotFound      = errors.New("no matching titles")
	ErrConfiguration = errors.New("catalog is not configured")
)

// CatalogError is a classified catalog failure. Detail carries the raw
// provider text and must not be shown to end users.
type CatalogError struct {
	Kind       error
	StatusCode int
	Detail     string
	Err        error
}

func (e *CatalogError) Error() string {
	msg := e.Kind.Error()
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s: HTTP %d", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CatalogError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NewCatalogError(kind error, status int, detail string, err error) *CatalogError {
	return &CatalogError{Kind: kind, StatusCode: status, Detail: detail, Err: err}
}

// StatusCode returns the HTTP status carried by a catalog error, or 0.
func StatusCode(err error) int {
	var catalogErr *CatalogError
	if errors.As(err, &catalogErr) {
		return catalogErr.StatusCode
	}
	return 0
}
