package cart

import (
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var esp32 = models.Product{ID: "1", Name: "ESP32 DevKit V1", Price: 799, Image: "esp.jpg", Stock: 45}

func TestReduceDoesNotMutateInput(t *testing.T) {
	before, _ := Reduce(Empty(), AddItem{Product: esp32})

	after, effect := Reduce(before, AddItem{Product: esp32})

	assert.Equal(t, Applied, effect)
	assert.Equal(t, 1, before.Items["1"].Quantity)
	assert.Equal(t, 799, int(before.Total))
	assert.Equal(t, 2, after.Items["1"].Quantity)
}

func TestAddItemCapturesProductSnapshot(t *testing.T) {
	s, _ := Reduce(Empty(), AddItem{Product: esp32})

	item := s.Items["1"]
	assert.Equal(t, models.CartLineItem{
		ProductID: "1", Name: "ESP32 DevKit V1", Price: 799, Image: "esp.jpg", Quantity: 1, Stock: 45,
	}, item)

	repriced := esp32
	repriced.Price = 999
	s, _ = Reduce(s, AddItem{Product: repriced})
	assert.Equal(t, int64(799), s.Items["1"].Price)
	assert.Equal(t, int64(1598), s.Total)
}

func TestDerivedFieldsMatchLines(t *testing.T) {
	dht := models.Product{ID: "2", Name: "DHT22", Price: 299, Stock: 128}
	actions := []Action{
		AddItem{Product: esp32},
		AddItem{Product: dht},
		AddItem{Product: dht},
		UpdateQuantity{ProductID: "1", Quantity: 4},
		RemoveItem{ProductID: "2"},
		AddItem{Product: dht},
		UpdateQuantity{ProductID: "2", Quantity: 500},
	}

	s := Empty()
	for _, a := range actions {
		s, _ = Reduce(s, a)

		count, total := 0, int64(0)
		for _, item := range s.Items {
			assert.GreaterOrEqual(t, item.Quantity, 1)
			assert.LessOrEqual(t, item.Quantity, item.Stock)
			count += item.Quantity
			total += item.Price * int64(item.Quantity)
		}
		assert.Equal(t, count, s.ItemCount, a.Name())
		assert.Equal(t, total, s.Total, a.Name())
	}
	assert.Equal(t, 132, s.ItemCount)
}

func TestUpdateQuantityToSameValueIsUnchanged(t *testing.T) {
	s, _ := Reduce(Empty(), AddItem{Product: esp32})

	_, effect := Reduce(s, UpdateQuantity{ProductID: "1", Quantity: 1})
	assert.Equal(t, Unchanged, effect)
}

func TestLinesAreOrderedByProductID(t *testing.T) {
	s := Empty()
	for _, id := range []string{"9", "10", "2"} {
		s, _ = Reduce(s, AddItem{Product: models.Product{ID: id, Price: 1, Stock: 1}})
	}

	var ids []string
	for _, l := range s.Lines() {
		ids = append(ids, l.ProductID)
	}
	assert.Equal(t, []string{"10", "2", "9"}, ids)
}

func TestNormalizeRecomputesDerivedFields(t *testing.T) {
	s := Normalize(State{Items: map[string]models.CartLineItem{
		"1": {ProductID: "1", Price: 100, Quantity: 3, Stock: 5},
	}, ItemCount: 99, Total: 1})

	assert.Equal(t, 3, s.ItemCount)
	assert.Equal(t, int64(300), s.Total)
	assert.NotNil(t, Normalize(State{}).Items)
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy(1000, 75, "0.05")
	require.NoError(t, err)

	s := Price(999, p)
	assert.Equal(t, Summary{Subtotal: 999, Shipping: 75, Tax: 50, Total: 1124}, s)

	_, err = NewPolicy(500, 50, "eighteen")
	assert.Error(t, err)
	_, err = NewPolicy(500, 50, "-0.1")
	assert.Error(t, err)
}
