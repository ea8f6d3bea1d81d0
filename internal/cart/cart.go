package cart

import (
	"github.com/shopspring/decimal"
)

// Product is the minimal catalog view the cart needs to open a line.
type Product struct {
	ID        int64
	Name      string
	UnitPrice decimal.Decimal
}

type Line struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int32           `json:"quantity"`
	Notes     string          `json:"notes,omitempty"`
}

type Totals struct {
	Items int32           `json:"totalItems"`
	Price decimal.Decimal `json:"totalPrice"`
}

// Cart is a pure reducer over a list of lines keyed by product id.
// It performs no I/O; persistence is layered on top by Store.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Totals is recomputed from the lines on every call. There is no stored
// total to drift out of sync.
func (c *Cart) Totals() Totals {
	t := Totals{Price: decimal.Zero}
	for _, line := range c.lines {
		t.Items += line.Quantity
		t.Price = t.Price.Add(line.UnitPrice.Mul(decimal.NewFromInt32(line.Quantity)))
	}
	return t
}

// AddItem increments an existing line for the product or appends a new one.
// Quantities below one count as one.
func (c *Cart) AddItem(p Product, quantity int32) {
	if quantity < 1 {
		quantity = 1
	}
	if i := c.indexOf(p.ID); i >= 0 {
		c.lines[i].Quantity += quantity
		return
	}
	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		Quantity:  quantity,
	})
}

// RemoveItem deletes the line; absent lines are a no-op, not an error.
func (c *Cart) RemoveItem(productID int64) {
	i := c.indexOf(productID)
	if i < 0 {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// UpdateQuantity replaces the line quantity. A quantity of zero or less is
// equivalent to RemoveItem; a line never stores a non-positive quantity.
func (c *Cart) UpdateQuantity(productID int64, quantity int32) {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return
	}
	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity = quantity
	}
}

// UpdateItemNotes sets free-text notes on an existing line; no-op if absent.
func (c *Cart) UpdateItemNotes(productID int64, notes string) {
	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Notes = notes
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) indexOf(productID int64) int {
	for i, line := range c.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}
