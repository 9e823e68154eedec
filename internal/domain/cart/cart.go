// Package cart holds the guest's in-progress selection for one ordering
// session. The store is purely local: no remote calls, no derived totals kept
// in sync. Consumers fold over the lines whenever they need amounts.
package cart

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the GST applied on top of the subtotal at checkout.
var DefaultTaxRate = decimal.NewFromFloat(0.05)

// LineID identifies a cart line. Distinct variants of the same dish are
// distinct lines.
type LineID struct {
	MenuItemID string
	VariantID  string
}

// ParseLineID splits the composite "menuItemID::variantID" form used when a
// variant was chosen; a bare menu item ID has no variant part.
func ParseLineID(s string) LineID {
	if item, variant, ok := strings.Cut(s, "::"); ok {
		return LineID{MenuItemID: item, VariantID: variant}
	}
	return LineID{MenuItemID: s}
}

// String renders the composite form.
func (id LineID) String() string {
	if id.VariantID == "" {
		return id.MenuItemID
	}
	return id.MenuItemID + "::" + id.VariantID
}

// Line is one selected item. UnitPrice is already resolved, including any
// variant price difference.
type Line struct {
	ID          LineID
	Name        string
	Variant     string
	UnitPrice   decimal.Decimal
	Quantity    int
	Instruction string
	IsVeg       bool
	ImageURL    string
}

// Totals is the folded view of the cart's amounts.
type Totals struct {
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal
}

// Store is a session-scoped cart. It is an injectable value, not a package
// singleton, so every ordering session (and every test) gets its own instance.
type Store struct {
	mu    sync.Mutex
	lines []Line
}

// New creates an empty cart.
func New() *Store {
	return &Store{}
}

// Add inserts a line, or merges it into the existing line with the same
// identity by adding the quantities. A non-positive quantity on the incoming
// line is treated as 1.
func (s *Store) Add(line Line) {
	if line.Quantity <= 0 {
		line.Quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ID == line.ID {
			s.lines[i].Quantity += line.Quantity
			return
		}
	}
	s.lines = append(s.lines, line)
}

// Increase bumps a line's quantity by one. Unknown IDs are ignored.
func (s *Store) Increase(id LineID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ID == id {
			s.lines[i].Quantity++
			return
		}
	}
}

// Decrease lowers a line's quantity by one. A line at quantity 1 is removed
// outright; quantity is never observable as zero.
func (s *Store) Decrease(id LineID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ID != id {
			continue
		}
		if s.lines[i].Quantity <= 1 {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
		} else {
			s.lines[i].Quantity--
		}
		return
	}
}

// SetInstruction replaces the free-text instruction for one line. An empty
// string means "no instruction".
func (s *Store) SetInstruction(id LineID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ID == id {
			s.lines[i].Instruction = text
			return
		}
	}
}

// Remove deletes a line regardless of quantity.
func (s *Store) Remove(id LineID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ID == id {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart (post-checkout or session reset).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// Lines returns a copy of the current lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Count is the total number of units across all lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Totals folds the current lines into subtotal, tax at the given rate, and
// grand total. Recomputed on every call; nothing cached.
func (s *Store) Totals(taxRate decimal.Decimal) Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	subtotal := decimal.Zero
	for _, l := range s.lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	tax := subtotal.Mul(taxRate).Round(2)
	return Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		GrandTotal: subtotal.Add(tax),
	}
}
