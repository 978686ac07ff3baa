// Package ledger turns scraped orders into csv artifacts a Firefly III
// importer accepts: one expense transaction per order plus a products
// breakdown.
package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"amazon-firefly/internal/assert"
	"amazon-firefly/internal/chrono"
	"amazon-firefly/internal/order"
	"amazon-firefly/internal/telemetry"
	"amazon-firefly/lib/textutil"
)

var ErrNoOrders = errors.New("no valid orders to process")

const (
	report_ledger_date     = "processor.date"
	report_ledger_amount   = "processor.amount"
	report_ledger_rows     = "processor.rows"
	report_ledger_products = "processor.products"
)

const timestampLayout = "20060102_150405"

type Processor struct {
	dateFormat string
	time       chrono.TimeAPI
	tel        telemetry.API
}

type Option func(cfg *processorCfg)

type processorCfg struct {
	tel  telemetry.API
	time chrono.TimeAPI
}

func WithCustomTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *processorCfg) {
		cfg.tel = tel
	}
}

func WithCustomTimeAPI(time chrono.TimeAPI) Option {
	return func(cfg *processorCfg) {
		cfg.time = time
	}
}

func NewProcessor(dateFormat string, options ...Option) Processor {
	assert.NotEmptyStr(dateFormat, "date format")

	var cfg processorCfg
	for _, o := range options {
		o(&cfg)
	}
	if cfg.tel == nil {
		cfg.tel = telemetry.SlogAPI{}
	}
	if cfg.time == nil {
		cfg.time = chrono.NewStandardTime()
	}
	return Processor{
		dateFormat: dateFormat,
		time:       cfg.time,
		tel:        telemetry.NewScopedAPI("ledger", cfg.tel),
	}
}

// OrderRow converts a single order. Fields that could not be parsed get a
// default (today, zero) and are listed in NeedsReview, which is also noted on
// the row itself.
func (p Processor) OrderRow(o order.Order) OrderRow {
	row := OrderRow{
		Description:       SanitizeCell(ComposeDescription(o)),
		SourceName:        SourceName,
		DestinationName:   DestinationName,
		CategoryName:      CategoryName,
		Tags:              Tags,
		Notes:             SanitizeCell(fmt.Sprintf("Order ID: %s", o.OrderID)),
		InternalReference: SanitizeCell(o.OrderID),
		ExternalID:        SanitizeCell(o.OrderID),
		Reconciled:        Reconciled,
	}

	var ok bool
	row.Date, ok = FormatDate(o.Date, p.dateFormat, p.time.Now())
	if !ok {
		p.tel.ReportWarning(report_ledger_date, o.OrderID, o.Date, row.Date)
		row.NeedsReview = append(row.NeedsReview, "date")
	}
	row.Amount, ok = FormatAmount(o.Amount)
	if !ok {
		p.tel.ReportWarning(report_ledger_amount, o.OrderID, o.Amount)
		row.NeedsReview = append(row.NeedsReview, "amount")
	}
	if len(row.NeedsReview) > 0 {
		row.Notes += fmt.Sprintf(" (needs review: %s)", strings.Join(row.NeedsReview, ", "))
	}
	return row
}

// OrderRows converts every order, failing with ErrNoOrders when there is
// nothing to convert.
func (p Processor) OrderRows(orders []order.Order) ([]OrderRow, error) {
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}
	rows := make([]OrderRow, len(orders))
	for i, o := range orders {
		rows[i] = p.OrderRow(o)
	}
	p.tel.ReportCount(report_ledger_rows, int64(len(rows)))
	return rows, nil
}

func (p Processor) ProductRow(product order.Product) ProductRow {
	date, ok := FormatDate(product.Date, p.dateFormat, p.time.Now())
	if !ok {
		p.tel.ReportWarning(report_ledger_products, product.Product, product.Date)
	}
	return ProductRow{
		Date:           date,
		Product:        SanitizeCell(textutil.Collapse(product.Product)),
		Quantity:       max(product.Quantity, 1),
		Price:          SanitizeCell(CleanPrice(product.Price)),
		ShipmentStatus: SanitizeCell(textutil.Collapse(product.ShipmentStatus)),
	}
}

func (p Processor) ProductRows(products []order.Product) []ProductRow {
	rows := make([]ProductRow, len(products))
	for i, product := range products {
		rows[i] = p.ProductRow(product)
	}
	return rows
}

// Artifacts describes the files written by Write.
type Artifacts struct {
	OrdersPath   string
	ProductsPath string
	Orders       int
	Products     int
	NeedsReview  int
}

// Write converts orders and products and writes them to timestamped files in
// outputDir. The products file is only written when there are products.
func (p Processor) Write(outputDir string, orders []order.Order, products []order.Product) (Artifacts, error) {
	rows, err := p.OrderRows(orders)
	if err != nil {
		return Artifacts{}, err
	}
	err = os.MkdirAll(outputDir, 0755)
	if err != nil {
		return Artifacts{}, err
	}

	timestamp := p.time.Now().Format(timestampLayout)
	out := Artifacts{
		OrdersPath: filepath.Join(outputDir, fmt.Sprintf("amazon_orders_%s.csv", timestamp)),
		Orders:     len(rows),
	}
	for _, r := range rows {
		if len(r.NeedsReview) > 0 {
			out.NeedsReview++
		}
	}
	err = WriteOrders(out.OrdersPath, rows)
	if err != nil {
		return Artifacts{}, fmt.Errorf("write orders: %w", err)
	}

	if len(products) > 0 {
		out.ProductsPath = filepath.Join(outputDir, fmt.Sprintf("amazon_products_%s.csv", timestamp))
		out.Products = len(products)
		err = WriteProducts(out.ProductsPath, p.ProductRows(products))
		if err != nil {
			return Artifacts{}, fmt.Errorf("write products: %w", err)
		}
	}
	return out, nil
}
