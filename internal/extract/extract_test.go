package extract

import (
	"os"
	"strings"
	"testing"

	"amazon-firefly/internal/order"
	"amazon-firefly/internal/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func loadDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func loadFixture(t *testing.T) *goquery.Document {
	t.Helper()
	f, err := os.Open("testdata/order_details.html")
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func TestOrderFromFixture(t *testing.T) {
	rec := &telemetry.Recorder{}
	e := New(DefaultSelectors(), rec)

	o, products := e.Order(loadFixture(t))

	require.Equal(t, order.Order{
		OrderID:     "405-1234567-7654321",
		Date:        "Ordine effettuato il 15 gennaio 2024",
		Amount:      "EUR 22,34",
		Description: "USB-C Cable 2m braided",
		Merchant:    order.DefaultMerchant,
	}, o)
	require.True(t, order.Validate(o))

	expected := []order.Product{
		{
			Date:           o.Date,
			Product:        "USB-C Cable 2m braided",
			Quantity:       2,
			Price:          "9,99",
			ShipmentStatus: "Consegnato il 18 gennaio",
		},
		{
			Date:           o.Date,
			Product:        "Pen",
			Quantity:       1,
			Price:          "2,36",
			ShipmentStatus: "Consegnato il 18 gennaio",
		},
	}
	if diff := cmp.Diff(expected, products); diff != "" {
		t.Fatal(diff)
	}
	require.Empty(t, rec.Reports("broken"))
}

func TestMissingFieldsFallBack(t *testing.T) {
	e := New(DefaultSelectors(), &telemetry.Recorder{})
	doc := loadDoc(t, `<html><body><p>nothing here</p></body></html>`)

	o, products := e.Order(doc)
	require.Equal(t, "", o.OrderID)
	require.Equal(t, "", o.Date)
	require.Equal(t, "", o.Amount)
	require.Equal(t, order.DescriptionPlaceholder, o.Description)
	require.Empty(t, products)
	require.False(t, order.Validate(o))
}

func TestBrokenSelectorIsIsolated(t *testing.T) {
	sel := DefaultSelectors()
	sel.OrderID = "div[[["
	e := New(sel, &telemetry.Recorder{})

	o, _ := e.Order(loadFixture(t))
	require.Equal(t, "", o.OrderID)
	require.Equal(t, "EUR 22,34", o.Amount)
	require.Equal(t, "Ordine effettuato il 15 gennaio 2024", o.Date)
}

func TestAmountIgnoresSubtotals(t *testing.T) {
	e := New(DefaultSelectors(), &telemetry.Recorder{})

	doc := loadDoc(t, `<div data-component="chargeSummary">
		<span class="a-list-item"><span>Subtotale:</span> <span>99,00 €</span></span>
	</div>`)
	require.Equal(t, "", e.Amount(doc))

	doc = loadDoc(t, `<div data-component="chargeSummary">
		<span class="a-list-item"><span class="a-text-bold">Totale ordine: € 1.234,56</span></span>
	</div>`)
	require.Equal(t, "EUR 1.234,56", e.Amount(doc))
}

func TestDescription(t *testing.T) {
	e := New(DefaultSelectors(), &telemetry.Recorder{})

	long := strings.Repeat("a", 150)
	doc := loadDoc(t, `
		<div data-component="itemTitle"><a class="a-link-normal">abc</a></div>
		<div data-component="itemTitle"><a class="a-link-normal">`+long+`</a></div>`)
	require.Equal(t, strings.Repeat("a", order.MaxDescriptionLength), e.Description(doc))

	doc = loadDoc(t, `<div data-component="itemTitle"><a class="a-link-normal">ab</a></div>`)
	require.Equal(t, order.DescriptionPlaceholder, e.Description(doc))
}

func TestFindEuroAmount(t *testing.T) {
	cases := []struct {
		text   string
		amount string
		ok     bool
	}{
		{text: "Totale: 12,34 €", amount: "12,34", ok: true},
		{text: "Totale: €12,34", amount: "12,34", ok: true},
		{text: "Totale: EUR 1.234,56.", amount: "1.234,56", ok: true},
		{text: "Totale: 12,34", ok: false},
		{text: "", ok: false},
	}
	for _, test := range cases {
		amount, ok := FindEuroAmount(test.text)
		require.Equal(t, test.ok, ok, test.text)
		require.Equal(t, test.amount, amount, test.text)
	}
}

func TestTryRecoversPanics(t *testing.T) {
	out, err := try("fallback", func() (string, error) {
		var m map[string]*string
		return *m["missing"], nil
	})
	require.Error(t, err)
	require.Equal(t, "fallback", out)
}

func TestMultilineTextKeepsWordBreaks(t *testing.T) {
	e := New(DefaultSelectors(), &telemetry.Recorder{})
	doc := loadDoc(t, `<div data-component="shipments">
		<div data-component="shipment">
			<div data-component="shipmentStatus"><span>Consegnato
				il 18
				gennaio</span></div>
			<div data-component="purchasedItems">
				<div data-component="purchasedItem">
					<div data-component="itemTitle"><a class="a-link-normal">Cavo
HDMI	2.1
Ultra</a></div>
					<div data-component="unitPrice"><span class="a-offscreen">9,99 €</span></div>
				</div>
			</div>
		</div>
	</div>`)

	require.Equal(t, "Cavo HDMI 2.1 Ultra", e.Description(doc))

	products := e.Products(doc)
	require.Len(t, products, 1)
	require.Equal(t, "Cavo HDMI 2.1 Ultra", products[0].Product)
	require.Equal(t, "Consegnato il 18 gennaio", products[0].ShipmentStatus)
}
