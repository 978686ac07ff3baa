package order

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := Order{
		OrderID: "405-1234567-7654321",
		Date:    "15 gennaio 2024",
		Amount:  "EUR 12,34",
	}

	cases := []struct {
		name   string
		modify func(o *Order)
		expect bool
	}{
		{name: "valid", modify: func(o *Order) {}, expect: true},
		{name: "thousands", modify: func(o *Order) { o.Amount = "EUR 1.234,56" }, expect: true},
		{name: "no space", modify: func(o *Order) { o.Amount = "EUR12.34" }, expect: true},
		{name: "empty id", modify: func(o *Order) { o.OrderID = "" }, expect: false},
		{name: "empty date", modify: func(o *Order) { o.Date = "" }, expect: false},
		{name: "empty amount", modify: func(o *Order) { o.Amount = "" }, expect: false},
		{name: "lowercase id", modify: func(o *Order) { o.OrderID = "405-abc" }, expect: false},
		{name: "id with spaces", modify: func(o *Order) { o.OrderID = "405 123" }, expect: false},
		{name: "untagged amount", modify: func(o *Order) { o.Amount = "12,34 €" }, expect: false},
		{name: "other currency", modify: func(o *Order) { o.Amount = "USD 12.34" }, expect: false},
	}

	for _, test := range cases {
		o := valid
		test.modify(&o)
		require.Equal(t, test.expect, Validate(o), test.name)
	}
}

func TestMapRoundTrip(t *testing.T) {
	o := Order{
		OrderID:     "405-1",
		Date:        "2024-01-15",
		Amount:      "EUR 5,00",
		Description: "Cavo USB",
		Merchant:    DefaultMerchant,
	}
	require.Empty(t, cmp.Diff(o, OrderFromMap(o.ToMap())))

	p := Product{
		Date:           "2024-01-15",
		Product:        "Cavo USB",
		Quantity:       2,
		Price:          "5,00",
		ShipmentStatus: "Consegnato",
	}
	require.Empty(t, cmp.Diff(p, ProductFromMap(p.ToMap())))
}

func TestFromMapDefaults(t *testing.T) {
	o := OrderFromMap(map[string]any{"order_id": "405-1"})
	require.Equal(t, DefaultMerchant, o.Merchant)
	require.Equal(t, "", o.Amount)

	cases := []struct {
		quantity any
		expect   int
	}{
		{quantity: nil, expect: 1},
		{quantity: 3, expect: 3},
		{quantity: float64(4), expect: 4},
		{quantity: "5", expect: 5},
		{quantity: "many", expect: 1},
		{quantity: 0, expect: 1},
	}
	for _, test := range cases {
		p := ProductFromMap(map[string]any{"quantity": test.quantity})
		require.Equal(t, test.expect, p.Quantity)
	}
}

func TestJSONKeys(t *testing.T) {
	encoded, err := json.Marshal(Product{Date: "d", Product: "p", Quantity: 1, Price: "1", ShipmentStatus: "s"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.Equal(t, ProductFromMap(decoded), Product{Date: "d", Product: "p", Quantity: 1, Price: "1", ShipmentStatus: "s"})

	keys := make([]string, 0, len(decoded))
	for k := range decoded {
		keys = append(keys, k)
	}
	require.ElementsMatch(t, []string{"date", "product", "quantity", "price", "shipment_status"}, keys)
}
