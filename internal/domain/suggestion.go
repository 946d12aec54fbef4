package domain

import "time"

// SearchTerm is a stored search suggestion.
type SearchTerm struct {
	Term       string    `json:"term"`
	Hits       int64     `json:"hits"`
	Weight     int64     `json:"weight"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}
