package ledger

import "strconv"

// Fixed values of every transaction row.
const (
	SourceName      = "Amazon"
	DestinationName = ""
	CategoryName    = "Shopping"
	Tags            = "amazon,online-shopping"
	Reconciled      = "false"
)

var OrdersHeader = []string{
	"date", "amount", "description", "source_name", "destination_name",
	"category_name", "tags", "notes", "internal_reference", "external_id",
	"reconciled", "bill_name", "bill_id", "budget_name", "budget_id",
}

var ProductsHeader = []string{
	"date", "product", "quantity", "price", "shipment_status",
}

// OrderRow is one transaction of the orders artifact.
type OrderRow struct {
	Date              string
	Amount            string
	Description       string
	SourceName        string
	DestinationName   string
	CategoryName      string
	Tags              string
	Notes             string
	InternalReference string
	ExternalID        string
	Reconciled        string
	BillName          string
	BillID            string
	BudgetName        string
	BudgetID          string

	// NeedsReview lists the fields a default was substituted for.
	NeedsReview []string
}

// Record returns the row's cells in OrdersHeader order.
func (r OrderRow) Record() []string {
	return []string{
		r.Date, r.Amount, r.Description, r.SourceName, r.DestinationName,
		r.CategoryName, r.Tags, r.Notes, r.InternalReference, r.ExternalID,
		r.Reconciled, r.BillName, r.BillID, r.BudgetName, r.BudgetID,
	}
}

type ProductRow struct {
	Date           string
	Product        string
	Quantity       int
	Price          string
	ShipmentStatus string
}

// Record returns the row's cells in ProductsHeader order.
func (r ProductRow) Record() []string {
	return []string{r.Date, r.Product, strconv.Itoa(r.Quantity), r.Price, r.ShipmentStatus}
}
