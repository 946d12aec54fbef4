package domain

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrSessionNotFound is returned for unknown or expired storefront sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidTerm rejects search terms that cannot be stored as suggestions.
	ErrInvalidTerm = errors.New("invalid search term")
)

// UserMessage renders err for a banner. Errors that know how to describe
// themselves implement UserMessage() string.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	}
	return err.Error()
}
