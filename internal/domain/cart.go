package domain

// CartLine is one product/quantity pair. Quantity is always >= 1; the
// backend deletes a line instead of storing zero.
type CartLine struct {
	ID       int64   `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Cart is the snapshot returned by every cart read or mutation. TotalItems
// and TotalQuantity are authoritative server values.
type Cart struct {
	ID            int64      `json:"id"`
	User          int64      `json:"user"`
	Items         []CartLine `json:"items"`
	TotalItems    int        `json:"total_items"`
	TotalQuantity int        `json:"total_quantity"`
	IsActive      bool       `json:"is_active"`
}

// Line returns the line with the given id, if present.
func (c *Cart) Line(id int64) (CartLine, bool) {
	if c == nil {
		return CartLine{}, false
	}
	for _, l := range c.Items {
		if l.ID == id {
			return l, true
		}
	}
	return CartLine{}, false
}

type CartSummary struct {
	TotalItems    int `json:"total_items"`
	TotalQuantity int `json:"total_quantity"`
	ItemCount     int `json:"item_count"`
}
