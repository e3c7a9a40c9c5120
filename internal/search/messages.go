package search

import (
	"context"
	"errors"

	"filmsearch/searchservice/internal/domain"
)

const (
	MessageEmptyQuery    = "Search query cannot be empty."
	MessageInvalidYear   = "Invalid year format. Please enter a 4-digit year (1900-2100)."
	MessageInvalidID     = "Invalid title id."
	MessageUnknownGenre  = "Unknown genre."
	MessageNotFound      = "No results found."
	MessageRateLimited   = "The catalog is temporarily unavailable. Please try again shortly."
	MessageUnavailable   = "Unable to fetch results, please try again later."
	MessageNotConfigured = "Search is not configured."
)

// UserMessage maps an error onto text that is safe to show to end users.
// Provider error text is never returned.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrEmptyQuery):
		return MessageEmptyQuery
	case errors.Is(err, domain.ErrInvalidYear):
		return MessageInvalidYear
	case errors.Is(err, domain.ErrInvalidID):
		return MessageInvalidID
	case errors.Is(err, domain.ErrUnknownGenre):
		return MessageUnknownGenre
	case errors.Is(err, domain.ErrConfiguration):
		return MessageNotConfigured
	case errors.Is(err, domain.ErrNotFound):
		return MessageNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return MessageRateLimited
	case errors.Is(err, context.Canceled):
		return ""
	default:
		return MessageUnavailable
	}
}

// isValidationError reports failures decided locally, before any catalog call.
func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrEmptyQuery) ||
		errors.Is(err, domain.ErrInvalidYear) ||
		errors.Is(err, domain.ErrInvalidID) ||
		errors.Is(err, domain.ErrUnknownGenre)
}

// retainsResults reports whether previously shown results stay visible after
// err. Provider and network failures keep them; validation, not-found and
// configuration failures clear them.
func retainsResults(err error) bool {
	if err == nil || isValidationError(err) {
		return false
	}
	return !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrConfiguration)
}
