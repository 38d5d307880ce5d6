package domain

import (
	"context"
	"errors"
)

var (
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrExtraction         = errors.New("extraction error")
	ErrValidation         = errors.New("validation error")
	ErrParseFailure       = errors.New("parse failure")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrRateLimited        = errors.New("rate limited")
	ErrConfiguration      = errors.New("configuration error")
)

// IsTransient reports whether err is an external-service failure worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimited)
}
