package domain

// CategoryRef is the category reference embedded in product payloads.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
}

// Product is a read-only copy of the backend catalog entry.
type Product struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	Unit          string       `json:"unit"`
	Category      *CategoryRef `json:"category,omitempty"`
	StockQuantity int          `json:"stock_quantity"`
}

func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

// ProductQuery selects one page of the catalog. A non-empty Term routes the
// query to the search endpoint.
type ProductQuery struct {
	Term     string `json:"term,omitempty"`
	Category string `json:"category,omitempty"`
	InStock  *bool  `json:"in_stock,omitempty"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type ProductPage struct {
	Count    int       `json:"count"`
	Next     *string   `json:"next"`
	Previous *string   `json:"previous"`
	Results  []Product `json:"results"`
}
