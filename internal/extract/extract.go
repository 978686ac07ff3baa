// Package extract reads order fields off a loaded order details document.
//
// Every extractor is fault isolated: a missing element, an unexpected layout or
// even a panic inside a lookup produces the field's sentinel value (an empty
// string, or a quantity of 1) instead of an error, so one broken field never
// prevents the others from being read.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"amazon-firefly/internal/order"
	"amazon-firefly/internal/telemetry"
	"amazon-firefly/lib/htmlutil"
	"amazon-firefly/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_extract_field   = "extractor.field"
	report_extract_product = "extractor.product"
)

var errNotFound = errors.New("element not found")

// try runs lookup and returns fallback when it fails in any way.
func try[T any](fallback T, lookup func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = fallback
			err = fmt.Errorf("lookup panicked: %v", r)
		}
	}()
	out, err = lookup()
	if err != nil {
		return fallback, err
	}
	return out, nil
}

// Extractor reads Orders and Products from detail pages.
type Extractor struct {
	sel Selectors
	tel telemetry.API
}

func New(sel Selectors, tel telemetry.API) Extractor {
	return Extractor{sel: sel, tel: telemetry.NewScopedAPI("extract", tel)}
}

func (e Extractor) field(name string, fallback string, lookup func() (string, error)) string {
	value, err := try(fallback, lookup)
	if err != nil {
		e.tel.ReportDebug(report_extract_field, name, err.Error())
	}
	return value
}

func firstText(root *goquery.Selection, selector string) (string, error) {
	text := htmlutil.Text(root.Find(selector).First())
	if text == "" {
		return "", fmt.Errorf("%w: %s", errNotFound, selector)
	}
	return text, nil
}

// OrderID returns the order identifier or "".
func (e Extractor) OrderID(doc *goquery.Document) string {
	return e.field("order_id", "", func() (string, error) {
		return firstText(doc.Selection, e.sel.OrderID)
	})
}

// Date returns the raw, localized order date or "".
func (e Extractor) Date(doc *goquery.Document) string {
	return e.field("date", "", func() (string, error) {
		return firstText(doc.Selection, e.sel.OrderDate)
	})
}

var currencyAmount = regexp.MustCompile(`€\s*(\d[\d.,]*)|(\d[\d.,]*)\s*€|EUR\s*(\d[\d.,]*)`)

// FindEuroAmount returns the first euro amount in text, without its currency
// marker, e.g. "Totale: 1.234,56 €" gives "1.234,56".
func FindEuroAmount(text string) (string, bool) {
	groups := currencyAmount.FindStringSubmatch(text)
	if groups == nil {
		return "", false
	}
	for _, g := range groups[1:] {
		if g != "" {
			return strings.TrimRight(g, ".,"), true
		}
	}
	return "", false
}

// Amount returns the grand total tagged as "EUR <amount>" or "". Only the
// emphasized total line counts, itemized subtotals are never used instead.
func (e Extractor) Amount(doc *goquery.Document) string {
	return e.field("amount", "", func() (string, error) {
		bold := doc.Find(e.sel.ChargeSummary).Find(e.sel.ChargeTotal).First()
		if bold.Length() == 0 {
			return "", fmt.Errorf("%w: %s %s", errNotFound, e.sel.ChargeSummary, e.sel.ChargeTotal)
		}
		line := bold.Closest(e.sel.ChargeLine)
		if line.Length() == 0 {
			line = bold.Parent()
		}
		amount, ok := FindEuroAmount(htmlutil.Text(line))
		if !ok {
			return "", fmt.Errorf("no amount in total line %q", htmlutil.Text(line))
		}
		return "EUR " + amount, nil
	})
}

// Description returns the first item title longer than 3 characters, truncated,
// or the description placeholder.
func (e Extractor) Description(doc *goquery.Document) string {
	return e.field("description", order.DescriptionPlaceholder, func() (string, error) {
		var titles []string
		doc.Find(e.sel.ItemTitleLink).Each(func(_ int, s *goquery.Selection) {
			text := htmlutil.Text(s)
			if len([]rune(text)) > 3 {
				titles = append(titles, text)
			}
		})
		if len(titles) == 0 {
			return "", fmt.Errorf("%w: %s", errNotFound, e.sel.ItemTitleLink)
		}
		return textutil.Truncate(titles[0], order.MaxDescriptionLength), nil
	})
}

var firstInteger = regexp.MustCompile(`\d+`)

// StripCurrency removes currency symbols and codes from a displayed price.
func StripCurrency(price string) string {
	price = strings.NewReplacer("€", "", "EUR", "").Replace(price)
	return textutil.Collapse(price)
}

func (e Extractor) item(item *goquery.Selection, status string) (order.Product, error) {
	title, err := firstText(item, e.sel.ItemTitle)
	if err != nil {
		return order.Product{}, fmt.Errorf("title: %w", err)
	}
	price, err := firstText(item, e.sel.ItemPrice)
	if err != nil {
		return order.Product{}, fmt.Errorf("price: %w", err)
	}
	price = StripCurrency(price)
	if price == "" {
		return order.Product{}, fmt.Errorf("price: %w", errNotFound)
	}

	quantity, _ := try(1, func() (int, error) {
		text, err := firstText(item, e.sel.ItemQuantity)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(firstInteger.FindString(text))
		if err != nil {
			return 0, err
		}
		if n < 1 {
			return 0, fmt.Errorf("quantity %d is not positive", n)
		}
		return n, nil
	})

	return order.Product{
		Product:        title,
		Quantity:       quantity,
		Price:          price,
		ShipmentStatus: status,
	}, nil
}

// Products walks order card -> shipment -> purchased item and returns one
// Product per item that has both a title and a price. Items missing either are
// skipped without affecting their siblings.
func (e Extractor) Products(doc *goquery.Document) []order.Product {
	var products []order.Product
	doc.Find(e.sel.OrderCard).Each(func(_ int, card *goquery.Selection) {
		card.Find(e.sel.Shipment).Each(func(_ int, shipment *goquery.Selection) {
			status := e.field("shipment_status", "", func() (string, error) {
				return firstText(shipment, e.sel.ShipmentStatus)
			})
			shipment.Find(e.sel.Item).Each(func(i int, item *goquery.Selection) {
				product, err := try(order.Product{}, func() (order.Product, error) {
					return e.item(item, status)
				})
				if err != nil {
					e.tel.ReportDebug(report_extract_product, i, err.Error())
					return
				}
				products = append(products, product)
			})
		})
	})
	return products
}

// Order reads a whole detail page. Products inherit the order's raw date.
func (e Extractor) Order(doc *goquery.Document) (order.Order, []order.Product) {
	o := order.New()
	o.OrderID = e.OrderID(doc)
	o.Date = e.Date(doc)
	o.Amount = e.Amount(doc)
	o.Description = e.Description(doc)

	products := e.Products(doc)
	for i := range products {
		products[i].Date = o.Date
	}

	e.tel.ReportDebug(
		"extracted order",
		o.OrderID, o.Date, o.Amount, o.Description, len(products),
	)
	return o, products
}
