// Package cart holds the client-side order accumulator: repeated selections of the same
// menu item merge into one quantity-bearing line.
package cart

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MaxQuantity caps a single line.
const MaxQuantity = 99

var ErrQuantityLimit = errors.New("quantity limit exceeded")

// Item is the menu data a cart line needs.
type Item struct {
	MenuItemID uint            `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	PrepTime   int             `json:"prep_time"`
}

type Line struct {
	Item
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

// Subtotal is Price × Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart keeps lines in insertion order. The zero value is an empty cart.
type Cart struct {
	lines []*Line
}

func New() *Cart {
	return &Cart{}
}

func (c *Cart) find(menuItemID uint) int {
	for i, l := range c.lines {
		if l.MenuItemID == menuItemID {
			return i
		}
	}
	return -1
}

// Add increments the line for item, inserting it with quantity 1 if absent.
func (c *Cart) Add(item Item) {
	if i := c.find(item.MenuItemID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, &Line{Item: item, Quantity: 1})
}

// AddN has the effect of n successive Adds. A result above MaxQuantity leaves
// the cart unchanged.
func (c *Cart) AddN(item Item, n int) error {
	if n <= 0 {
		return nil
	}
	i := c.find(item.MenuItemID)
	current := 0
	if i >= 0 {
		current = c.lines[i].Quantity
	}
	if n > MaxQuantity-current {
		return ErrQuantityLimit
	}
	if i >= 0 {
		c.lines[i].Quantity += n
		return nil
	}
	c.lines = append(c.lines, &Line{Item: item, Quantity: n})
	return nil
}

// Remove decrements the line for menuItemID, dropping it once quantity would hit zero.
// Unknown ids are ignored.
func (c *Cart) Remove(menuItemID uint) {
	i := c.find(menuItemID)
	if i < 0 {
		return
	}
	if c.lines[i].Quantity > 1 {
		c.lines[i].Quantity--
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// SetInstructions attaches free text to an existing line.
func (c *Cart) SetInstructions(menuItemID uint, text string) bool {
	i := c.find(menuItemID)
	if i < 0 {
		return false
	}
	c.lines[i].SpecialInstructions = text
	return true
}

// Lines returns copies of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, *l)
	}
	return out
}

func (c *Cart) Quantity(menuItemID uint) int {
	if i := c.find(menuItemID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

func (c *Cart) TotalItems() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// MaxPrepTime is the longest prep time among the lines.
func (c *Cart) MaxPrepTime() int {
	max := 0
	for _, l := range c.lines {
		if l.PrepTime > max {
			max = l.PrepTime
		}
	}
	return max
}

func (c *Cart) Clone() *Cart {
	cp := &Cart{lines: make([]*Line, 0, len(c.lines))}
	for _, l := range c.lines {
		line := *l
		cp.lines = append(cp.lines, &line)
	}
	return cp
}

// Summary is the JSON view of a cart.
type Summary struct {
	Lines       []Line          `json:"lines"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (c *Cart) Summary() Summary {
	return Summary{
		Lines:       c.Lines(),
		TotalItems:  c.TotalItems(),
		TotalAmount: c.TotalAmount(),
	}
}
