package cart

import (
	"fmt"
	"sort"

	"storefront/internal/models"
)

// State is a snapshot of one shopper's cart. ItemCount and Total are always derived from Items.
type State struct {
	Items     map[string]models.CartLineItem `json:"items"`
	ItemCount int                            `json:"itemCount"`
	Total     int64                          `json:"total"`
}

// Empty returns a cart with no lines
func Empty() State {
	return State{Items: map[string]models.CartLineItem{}}
}

// Lines returns the line items ordered by product id
func (s State) Lines() []models.CartLineItem {
	lines := make([]models.CartLineItem, 0, len(s.Items))
	for _, item := range s.Items {
		lines = append(lines, item)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

// IsEmpty reports whether the cart has no lines
func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// Action is a cart mutation. The set of actions is closed.
type Action interface {
	isAction()
	Name() string
}

// AddItem adds one unit of Product
type AddItem struct {
	Product models.Product
}

// UpdateQuantity sets the quantity of a line; below 1 removes it
type UpdateQuantity struct {
	ProductID string
	Quantity  int
}

// RemoveItem deletes a line
type RemoveItem struct {
	ProductID string
}

// Clear empties the cart
type Clear struct{}

func (AddItem) isAction()        {}
func (UpdateQuantity) isAction() {}
func (RemoveItem) isAction()     {}
func (Clear) isAction()          {}

func (AddItem) Name() string        { return "add_item" }
func (UpdateQuantity) Name() string { return "update_quantity" }
func (RemoveItem) Name() string     { return "remove_item" }
func (Clear) Name() string          { return "clear" }

// Effect describes what a reduction did
type Effect string

const (
	Applied   Effect = "applied"
	Clamped   Effect = "clamped"
	Unchanged Effect = "unchanged"
	Rejected  Effect = "rejected"
)

// Reduce applies a to s and returns the next state. s is never modified.
func Reduce(s State, a Action) (State, Effect) {
	switch a := a.(type) {
	case AddItem:
		return addItem(s, a)
	case UpdateQuantity:
		return updateQuantity(s, a)
	case RemoveItem:
		return removeItem(s, a)
	case Clear:
		return Empty(), Applied
	default:
		panic(fmt.Sprintf("cart: unknown action %T", a))
	}
}

func addItem(s State, a AddItem) (State, Effect) {
	p := a.Product
	if existing, ok := s.Items[p.ID]; ok {
		if existing.Quantity >= existing.Stock {
			return s, Clamped
		}
		next := s.copy()
		existing.Quantity++
		next.Items[p.ID] = existing
		return next.recompute(), Applied
	}
	if p.Stock <= 0 {
		return s, Rejected
	}
	next := s.copy()
	next.Items[p.ID] = models.CartLineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Quantity:  1,
		Stock:     p.Stock,
	}
	return next.recompute(), Applied
}

func updateQuantity(s State, a UpdateQuantity) (State, Effect) {
	existing, ok := s.Items[a.ProductID]
	if !ok {
		return s, Unchanged
	}
	if a.Quantity < 1 {
		return removeItem(s, RemoveItem{ProductID: a.ProductID})
	}
	effect := Applied
	qty := a.Quantity
	if qty > existing.Stock {
		qty = existing.Stock
		effect = Clamped
	}
	if qty == existing.Quantity && effect == Applied {
		return s, Unchanged
	}
	next := s.copy()
	existing.Quantity = qty
	next.Items[a.ProductID] = existing
	return next.recompute(), effect
}

func removeItem(s State, a RemoveItem) (State, Effect) {
	if _, ok := s.Items[a.ProductID]; !ok {
		return s, Unchanged
	}
	next := s.copy()
	delete(next.Items, a.ProductID)
	return next.recompute(), Applied
}

func (s State) copy() State {
	items := make(map[string]models.CartLineItem, len(s.Items)+1)
	for k, v := range s.Items {
		items[k] = v
	}
	return State{Items: items}
}

func (s State) recompute() State {
	s.ItemCount = 0
	s.Total = 0
	for _, item := range s.Items {
		s.ItemCount += item.Quantity
		s.Total += item.Price * int64(item.Quantity)
	}
	return s
}

// Normalize fills derived fields and a nil map, e.g. after decoding a stored snapshot
func Normalize(s State) State {
	if s.Items == nil {
		s.Items = map[string]models.CartLineItem{}
	}
	return s.recompute()
}
