package extract

// Selectors locate every field on an order detail page. They are plain css
// selectors so a changed layout only needs a configuration change.
type Selectors struct {
	OrderID   string `json:"order_id"`
	OrderDate string `json:"order_date"`

	// ChargeSummary is the region holding the itemized totals, ChargeTotal the
	// emphasized grand total inside it and ChargeLine the list item that
	// contains both the label and the amount of a total.
	ChargeSummary string `json:"charge_summary"`
	ChargeTotal   string `json:"charge_total"`
	ChargeLine    string `json:"charge_line"`

	ItemTitleLink string `json:"item_title_link"`

	OrderCard      string `json:"order_card"`
	Shipment       string `json:"shipment"`
	ShipmentStatus string `json:"shipment_status"`
	Item           string `json:"item"`
	ItemTitle      string `json:"item_title"`
	ItemQuantity   string `json:"item_quantity"`
	ItemPrice      string `json:"item_price"`
}

// DefaultSelectors matches the amazon.it order details layout.
func DefaultSelectors() Selectors {
	return Selectors{
		OrderID:   "div[data-component='orderId'] span",
		OrderDate: "div[data-component='orderDate'] span",

		ChargeSummary: "div[data-component='chargeSummary']",
		ChargeTotal:   "span.a-list-item span.a-text-bold",
		ChargeLine:    "span.a-list-item",

		ItemTitleLink: "div[data-component='itemTitle'] a.a-link-normal",

		OrderCard:      "div[data-component='shipments']",
		Shipment:       "div[data-component='shipment']",
		ShipmentStatus: "div[data-component='shipmentStatus'] span",
		Item:           "div[data-component='purchasedItems'] div[data-component='purchasedItem']",
		ItemTitle:      "div[data-component='itemTitle']",
		ItemQuantity:   "div[data-component='itemQuantity']",
		ItemPrice:      "div[data-component='unitPrice'] span.a-offscreen",
	}
}
