package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"grocery-storefront/internal/domain"
	"grocery-storefront/internal/search"
	"grocery-storefront/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type searchResponse struct {
	State   search.State `json:"state"`
	Listing session.View `json:"listing"`
}

type termRequest struct {
	Term string `json:"term"`
}

type acceptRequest struct {
	Term string `json:"term" binding:"required"`
}

// filtersRequest changes only the fields present. in_stock: null clears the
// stock filter.
type filtersRequest struct {
	Category *string         `json:"category"`
	InStock  json.RawMessage `json:"in_stock"`
	Page     *int            `json:"page" binding:"omitempty,min=1"`
}

func searchSnapshot(sess *session.Session) searchResponse {
	return searchResponse{State: sess.Search.State(), Listing: sess.Listing.View()}
}

func (h *handlers) getSearch(c *gin.Context) {
	c.JSON(http.StatusOK, searchSnapshot(currentSession(c)))
}

// setSearchTerm records a keystroke. The query runs after the debounce
// window, so the response only confirms the pending state.
func (h *handlers) setSearchTerm(c *gin.Context) {
	var req termRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	sess := currentSession(c)
	sess.Search.OnInputChange(req.Term)
	c.JSON(http.StatusAccepted, searchSnapshot(sess))
}

func (h *handlers) acceptSuggestion(c *gin.Context) {
	var req acceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "term is required"})
		return
	}
	sess := currentSession(c)
	sess.Search.AcceptSuggestion(c.Request.Context(), req.Term)
	c.JSON(http.StatusOK, searchSnapshot(sess))
}

func (h *handlers) listSuggestions(c *gin.Context) {
	if h.deps.Suggestions == nil {
		c.JSON(http.StatusOK, gin.H{"results": []domain.SearchTerm{}})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	terms, err := h.deps.Suggestions.Suggest(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.logger.Warn("suggest failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "suggestions unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": terms})
}

func (h *handlers) updateFilters(c *gin.Context) {
	var req filtersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filters"})
		return
	}
	inStock, setInStock, err := parseInStock(req.InStock)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "in_stock must be true, false or null"})
		return
	}

	sess := currentSession(c)
	sess.Search.UpdateFilters(c.Request.Context(), func(f *search.Filters) {
		if req.Category != nil {
			f.Category = strings.TrimSpace(*req.Category)
			f.Page = 1
		}
		if setInStock {
			f.InStock = inStock
			f.Page = 1
		}
		if req.Page != nil {
			f.Page = *req.Page
		}
	})
	c.JSON(http.StatusOK, searchSnapshot(sess))
}

func (h *handlers) clearFilters(c *gin.Context) {
	sess := currentSession(c)
	sess.Search.ClearFilters(c.Request.Context())
	c.JSON(http.StatusOK, searchSnapshot(sess))
}

func (h *handlers) listCategories(c *gin.Context) {
	categories, err := currentSession(c).Backend.ListCategories(c.Request.Context())
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warn("list categories failed", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": domain.UserMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": categories})
}

// parseInStock reports whether the field was present and its value; an
// explicit null yields (nil, true).
func parseInStock(raw json.RawMessage) (*bool, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, true, nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, err
	}
	return &v, true, nil
}
