package testutil

import (
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

type ShopItem struct {
	Title    string
	Quantity int
	Price    string
}

// ShopOrder is an order as the fake shop renders it, empty fields are left
// out of the page entirely.
type ShopOrder struct {
	ID     string
	Date   string
	Total  string
	Status string
	Items  []ShopItem
	// NoLink renders the order card without a link to its details.
	NoLink bool
	// Broken makes the details page answer with a server error.
	Broken bool
}

type ShopOptions struct {
	// Years maps a year to its listing pages.
	Years map[int][][]ShopOrder
	// SessionToken, when set, is the value the session-token cookie must
	// carry for the home page to show a signed in account.
	SessionToken string
	// BrokenYears answer every listing request for the year with an error.
	BrokenYears map[int]bool
	// LoopPagination makes the last page link back to the first one.
	LoopPagination bool
	// ButtonNext renders a script driven next page button ahead of the
	// regular pagination links.
	ButtonNext bool
	// PlainPagination renders previous and next as bare links with an
	// explicit startIndex, previous first, instead of the a-pagination list.
	PlainPagination bool
}

// Shop is an httptest server imitating the amazon order history pages.
type Shop struct {
	*httptest.Server
	opts ShopOptions

	mu      sync.Mutex
	details int
	listing int
}

const (
	ShopPageSize   = 10
	ShopListPath   = "/your-orders/orders"
	ShopDetailPath = "/gp/your-account/order-details"
)

func NewShop(t testing.TB, opts ShopOptions) *Shop {
	shop := &Shop{opts: opts}
	mux := http.NewServeMux()
	mux.HandleFunc("/", shop.home)
	mux.HandleFunc(ShopListPath, shop.list)
	mux.HandleFunc(ShopDetailPath, shop.detail)
	shop.Server = httptest.NewServer(mux)
	t.Cleanup(shop.Close)
	return shop
}

// YearUrlTemplate is the listing url template of the shop.
func (s *Shop) YearUrlTemplate() string {
	return s.URL + ShopListPath + "?timeFilter=year-%d"
}

// DetailHits returns how many detail pages were served.
func (s *Shop) DetailHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details
}

// ListingHits returns how many listing pages were served.
func (s *Shop) ListingHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listing
}

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html><body>
<div id="nav-tools">
{{if .}}<a id="nav-item-switch-account" href="/switch">Account</a>{{else}}<a id="nav-link-accountList" href="/signin">Accedi</a>{{end}}
</div>
</body></html>`))

func (s *Shop) home(w http.ResponseWriter, r *http.Request) {
	loggedIn := true
	if s.opts.SessionToken != "" {
		cookie, err := r.Cookie("session-token")
		loggedIn = err == nil && cookie.Value == s.opts.SessionToken
	}
	homeTemplate.Execute(w, loggedIn)
}

type listingCard struct {
	ID   string
	Href string
}

type listingPage struct {
	Cards  []listingCard
	Next   string
	Prev   string
	Button bool
	Plain  bool
}

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html><body>
<div id="ordersContainer">
{{range .Cards}}
<div class="a-box-group a-spacing-base order-card">
  <div class="a-box"><span class="a-color-secondary">Ordine n. {{.ID}}</span></div>
  {{if .Href}}<div class="a-box"><a class="a-link-normal" href="{{.Href}}">Visualizza i dettagli dell'ordine</a></div>{{end}}
</div>
{{end}}
</div>
{{if .Button}}<button type="button" data-cy="pagination-next">Avanti</button>{{end}}
{{if .Plain}}<div class="pagination-links">
{{if .Prev}}<a href="{{.Prev}}">Indietro</a>{{end}}
{{if .Next}}<a href="{{.Next}}">Avanti</a>{{end}}
</div>{{else}}<ul class="a-pagination">
{{if .Next}}<li class="a-last"><a href="{{.Next}}">Avanti<span class="a-letter-space"></span></a></li>{{else}}<li class="a-disabled a-last">Avanti</li>{{end}}
</ul>{{end}}
</body></html>`))

func listingPath(year, page int) string {
	path := fmt.Sprintf("%s?timeFilter=year-%d", ShopListPath, year)
	if page > 0 {
		path += fmt.Sprintf("&startIndex=%d", page*ShopPageSize)
	}
	return path
}

func detailPath(year, page, index int) string {
	return fmt.Sprintf("%s?orderKey=%d-%d-%d", ShopDetailPath, year, page, index)
}

func (s *Shop) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.listing++
	s.mu.Unlock()

	year, err := strconv.Atoi(strings.TrimPrefix(r.URL.Query().Get("timeFilter"), "year-"))
	if err != nil {
		http.Error(w, "bad time filter", http.StatusBadRequest)
		return
	}
	if s.opts.BrokenYears[year] {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	start, _ := strconv.Atoi(r.URL.Query().Get("startIndex"))
	page := start / ShopPageSize

	pages := s.opts.Years[year]
	data := listingPage{Button: s.opts.ButtonNext, Plain: s.opts.PlainPagination}
	if page < len(pages) {
		for i, o := range pages[page] {
			card := listingCard{ID: o.ID}
			if !o.NoLink {
				card.Href = detailPath(year, page, i)
			}
			data.Cards = append(data.Cards, card)
		}
	}
	switch {
	case page+1 < len(pages):
		data.Next = listingPath(year, page+1)
	case s.opts.LoopPagination && len(pages) > 0:
		data.Next = listingPath(year, 0)
	}
	if s.opts.PlainPagination {
		if page > 0 {
			data.Prev = fmt.Sprintf("%s?timeFilter=year-%d&startIndex=%d", ShopListPath, year, (page-1)*ShopPageSize)
		}
		if data.Next != "" && !strings.Contains(data.Next, "startIndex") {
			data.Next += "&startIndex=0"
		}
	}
	listingTemplate.Execute(w, data)
}

var detailTemplate = template.Must(template.New("detail").Parse(`<!DOCTYPE html>
<html><body>
{{if .Date}}<div data-component="orderDate"><span>Ordine effettuato il {{.Date}}</span></div>{{end}}
{{if .ID}}<div data-component="orderId"><span>{{.ID}}</span></div>{{end}}
<div data-component="shipments">
  <div data-component="shipment">
    <div data-component="shipmentStatus"><span>{{.Status}}</span></div>
    <div data-component="purchasedItems">
    {{range .Items}}
      <div data-component="purchasedItem">
        <div data-component="itemTitle"><a class="a-link-normal" href="/dp/item">{{.Title}}</a></div>
        <div data-component="itemQuantity">Quantità: {{.Quantity}}</div>
        <div data-component="unitPrice"><span class="a-offscreen">{{.Price}} €</span></div>
      </div>
    {{end}}
    </div>
  </div>
</div>
<div data-component="chargeSummary">
  <span class="a-list-item"><span>Subtotale:</span> <span>{{.Total}}</span></span>
  {{if .Total}}<span class="a-list-item"><span class="a-text-bold">Totale:</span> <span class="a-text-bold">{{.Total}}</span></span>{{end}}
</div>
</body></html>`))

func (s *Shop) detail(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.details++
	s.mu.Unlock()

	var year, page, index int
	_, err := fmt.Sscanf(r.URL.Query().Get("orderKey"), "%d-%d-%d", &year, &page, &index)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	pages := s.opts.Years[year]
	if page >= len(pages) || index >= len(pages[page]) {
		http.NotFound(w, r)
		return
	}
	o := pages[page][index]
	if o.Broken {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	detailTemplate.Execute(w, o)
}

// Valid reports whether o is rendered with every field an accepted order needs.
func (o ShopOrder) Valid() bool {
	return o.ID != "" && o.Date != "" && o.Total != "" && !o.NoLink && !o.Broken
}
