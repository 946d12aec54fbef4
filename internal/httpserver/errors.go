package httpserver

import (
	"errors"
	"net/http"

	"grocery-storefront/internal/backend"
	"grocery-storefront/internal/cartstore"
	"grocery-storefront/internal/domain"
	"grocery-storefront/internal/search"
)

// statusFor maps a store or backend error to the BFF response status.
// Backend 4xx answers pass through; anything else is a gateway failure.
func statusFor(err error) int {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cartstore.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTerm):
		return http.StatusBadRequest
	case errors.Is(err, search.ErrClosed):
		return http.StatusGone
	default:
		return http.StatusBadGateway
	}
}

type cartErrorResponse struct {
	Error string          `json:"error"`
	Cart  cartstore.State `json:"cart"`
}
