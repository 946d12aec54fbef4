package session

import (
	"sync"

	"grocery-storefront/internal/domain"
	"grocery-storefront/internal/search"
)

// View is what the product grid renders.
type View struct {
	Generation uint64              `json:"generation"`
	SearchMode bool                `json:"search_mode"`
	Query      domain.ProductQuery `json:"query"`
	Page       *domain.ProductPage `json:"page"`
	Error      string              `json:"error,omitempty"`
}

// Listing keeps the newest search result. A failed fetch records its
// message but keeps the last good page.
type Listing struct {
	mu   sync.Mutex
	view View
}

// Offer applies r unless a newer generation has already been applied.
func (l *Listing) Offer(r search.Result) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r.Generation <= l.view.Generation {
		return false
	}
	l.view.Generation = r.Generation
	if r.Err != nil {
		l.view.Error = domain.UserMessage(r.Err)
		return true
	}
	l.view.Error = ""
	l.view.Query = r.Query
	l.view.SearchMode = r.SearchMode
	l.view.Page = r.Page
	return true
}

func (l *Listing) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.view
}
