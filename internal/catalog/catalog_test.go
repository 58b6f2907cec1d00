package catalog

import (
	"testing"

	"storefront/internal/apperr"
	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDataset(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	products := c.List()
	assert.Len(t, products, 12)
	assert.Equal(t, "1", products[0].ID)
	assert.Equal(t, int64(799), products[0].Price)
	assert.Equal(t, 45, products[0].Stock)
	assert.Equal(t, []string{"Microcontrollers", "Sensors", "Tools", "Displays", "Components"}, c.Categories())
}

func TestGet(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	p, err := c.Get("6")
	require.NoError(t, err)
	assert.Equal(t, int64(6499), p.Price)

	_, err = c.Get("999")
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestFindByCategoryIsCaseInsensitiveSubstring(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	sensors := c.FindByCategory("sens")
	assert.Len(t, sensors, 3)
	for _, p := range sensors {
		assert.Equal(t, "Sensors", p.Category)
	}
	assert.Empty(t, c.FindByCategory("drones"))
}

func TestSearch(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"query on name", Filter{Query: "esp32"}, []string{"1"}},
		{"query on description", Filter{Query: "barometric"}, []string{"11"}},
		{"protocol", Filter{Protocol: "ethernet"}, []string{"6"}},
		{"use case and price", Filter{UseCase: "Robotics", MaxPrice: 300}, []string{"5", "8"}},
		{"min price", Filter{MinPrice: 2000}, []string{"4", "6"}},
		{"no match", Filter{Query: "quantum"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := []string{}
			for _, p := range c.Search(tt.filter) {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestReturnedProductsAreCopies(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	p, _ := c.Get("1")
	p.Price = 1
	p.Badges[0] = "Tampered"
	p.KeySpecs["Flash"] = "0MB"

	again, _ := c.Get("1")
	assert.Equal(t, int64(799), again.Price)
	assert.Equal(t, "New", again.Badges[0])
	assert.Equal(t, "4MB", again.KeySpecs["Flash"])
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New([]models.Product{{ID: "1", Name: "a"}, {ID: "1", Name: "b"}})
	assert.Error(t, err)
}
