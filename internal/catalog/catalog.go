package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

//go:embed products.json
var productsJSON []byte

// Catalog is an immutable, read-only product list. Every product it hands out is a copy.
type Catalog struct {
	products []models.Product
	byID     map[string]int
}

// Filter narrows a Search. Zero values match everything.
type Filter struct {
	Query    string
	Category string
	Protocol string
	UseCase  string
	MinPrice int64
	MaxPrice int64
	InStock  bool
}

// Default loads the embedded storefront dataset
func Default() (*Catalog, error) {
	var products []models.Product
	if err := json.Unmarshal(productsJSON, &products); err != nil {
		return nil, fmt.Errorf("failed to decode product dataset: %w", err)
	}
	return New(products)
}

// New builds a catalog from products. Ids must be unique.
func New(products []models.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]models.Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product %q has no id", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %s", p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, clone(p))
	}
	return c, nil
}

// List returns all products in dataset order
func (c *Catalog) List() []models.Product {
	out := make([]models.Product, len(c.products))
	for i, p := range c.products {
		out[i] = clone(p)
	}
	return out
}

// Get returns the product with id
func (c *Catalog) Get(id string) (models.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.Product{}, apperr.NotFoundError("product", id)
	}
	return clone(c.products[i]), nil
}

// FindByCategory does a case-insensitive substring match on category
func (c *Catalog) FindByCategory(category string) []models.Product {
	return c.Search(Filter{Category: category})
}

// Search returns products matching every set field of f
func (c *Catalog) Search(f Filter) []models.Product {
	out := []models.Product{}
	for _, p := range c.products {
		if f.matches(p) {
			out = append(out, clone(p))
		}
	}
	return out
}

// Categories returns distinct categories in first-seen order
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

func (f Filter) matches(p models.Product) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !contains(p.Name, q) && !contains(p.Description, q) && !contains(p.Category, q) {
			return false
		}
	}
	if f.Category != "" && !contains(p.Category, strings.ToLower(f.Category)) {
		return false
	}
	if f.Protocol != "" && !anyEqualFold(p.Protocols, f.Protocol) {
		return false
	}
	if f.UseCase != "" && !anyEqualFold(p.UseCases, f.UseCase) {
		return false
	}
	if f.MinPrice > 0 && p.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	if f.InStock && p.Stock <= 0 {
		return false
	}
	return true
}

func contains(s, lowerSub string) bool {
	return strings.Contains(strings.ToLower(s), lowerSub)
}

func anyEqualFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func clone(p models.Product) models.Product {
	p.Badges = cloneStrings(p.Badges)
	p.Protocols = cloneStrings(p.Protocols)
	p.UseCases = cloneStrings(p.UseCases)
	p.Compatibility = cloneStrings(p.Compatibility)
	if p.KeySpecs != nil {
		specs := make(map[string]string, len(p.KeySpecs))
		for k, v := range p.KeySpecs {
			specs[k] = v
		}
		p.KeySpecs = specs
	}
	return p
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
