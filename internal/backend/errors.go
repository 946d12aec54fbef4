package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError is a non-2xx response from the store backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// UserMessage is the text shown to the shopper.
func (e *APIError) UserMessage() string {
	return e.Message
}

// TransportError wraps failures where no response was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) UserMessage() string {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return "unable to reach the store service"
}

// decodeAPIError extracts a readable message from common error payload
// shapes: {"detail": ...}, {"message": ...}, {"error": ...} and field maps
// such as {"quantity": ["Only 3 left in stock."]}.
func decodeAPIError(status int, body []byte) *APIError {
	msg := strings.TrimSpace(messageFromBody(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "unexpected response"
	}
	return &APIError{Status: status, Message: msg}
}

func messageFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "message", "error"} {
		if s := flatten(payload[key]); s != "" {
			return s
		}
	}
	if s := flatten(payload["non_field_errors"]); s != "" {
		return s
	}
	fields := make([]string, 0, len(payload))
	for field := range payload {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if s := flatten(payload[field]); s != "" {
			return field + ": " + s
		}
	}
	return ""
}

func flatten(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}
