package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Item describes a purchasable product as the storefront hands it to the
// cart: everything but the quantity, which the cart owns.
type Item struct {
	ID       string          `json:"id" validate:"required"`
	Name     string          `json:"nombre" validate:"required"`
	Price    decimal.Decimal `json:"precio"`
	ImageURL string          `json:"imagen_url,omitempty"`
}

// Line is one distinct selected item with its chosen quantity. At most one
// line exists per item id; a quantity below 1 never survives a mutation.
type Line struct {
	ID       string          `json:"id"`
	Name     string          `json:"nombre"`
	Price    decimal.Decimal `json:"precio"`
	ImageURL string          `json:"imagen_url,omitempty"`
	Quantity int             `json:"cantidad"`
}

// Subtotal is price × quantity for this line.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the line items of one browsing session, in insertion order.
// It lives purely in memory; nothing survives a gateway restart. All
// operations are atomic and none of them can fail on well-formed input.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

// AddItem merges the item into the cart: an existing line with the same id
// gains quantity 1, otherwise a new line is appended with quantity 1.
func (c *Cart) AddItem(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].ID == item.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, Line{
		ID:       item.ID,
		Name:     item.Name,
		Price:    item.Price,
		ImageURL: item.ImageURL,
		Quantity: 1,
	})
}

// RemoveItem drops the matching line. Removing an absent id is a no-op,
// not an error.
func (c *Cart) RemoveItem(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
}

// UpdateQuantity sets the line's quantity exactly. A quantity of zero or
// below removes the line; an unknown id is a no-op.
func (c *Cart) UpdateQuantity(id string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if quantity <= 0 {
		c.removeLocked(id)
		return
	}
	for i := range c.lines {
		if c.lines[i].ID == id {
			c.lines[i].Quantity = quantity
			return
		}
	}
}

// Clear empties the cart unconditionally (post-checkout).
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total derives the cart total, ∑(price × quantity). It is recomputed on
// every read and never stored.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Len reports the number of distinct lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func (c *Cart) removeLocked(id string) {
	for i := range c.lines {
		if c.lines[i].ID == id {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}
