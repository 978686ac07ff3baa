package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"amazon-firefly/internal/assert"
	"amazon-firefly/internal/chrono"
	"amazon-firefly/internal/extract"
	"amazon-firefly/internal/order"
	"amazon-firefly/internal/telemetry"
	"amazon-firefly/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("amazon-firefly/scrape")

const (
	report_walker_listing      = "walker.listing"
	report_walker_cards        = "walker.cards"
	report_walker_visit_detail = "walker.visit-detail"
	report_walker_return       = "walker.return-to-listing"
	report_walker_pagination   = "walker.pagination"
	report_walker_rejected     = "walker.rejected"
	report_walker_accepted     = "walker.accepted"
)

// Driver is the page driver the walker navigates with. Navigation replaces
// the current document, there is only ever one.
type Driver interface {
	Navigate(ctx context.Context, ref string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, target *goquery.Selection) error
	Document() *goquery.Document
	CurrentURL() string
}

type Options struct {
	// YearUrlTemplate is formatted with the year to get its first listing page.
	YearUrlTemplate  string
	Selectors        Selectors
	Extract          extract.Selectors
	WaitTimeout      time.Duration
	PaginationSettle time.Duration
}

// YearResult is what walking a single year produced.
type YearResult struct {
	Year     int
	Pages    int
	Visited  int
	Rejected int
	Failed   int
	Orders   []order.Order
	Products []order.Product
}

// Walker moves through the listing pages of one year and the detail page of
// every order on them.
type Walker struct {
	driver    Driver
	opts      Options
	extractor extract.Extractor
	tel       telemetry.API
}

func NewWalker(driver Driver, opts Options, tel telemetry.API) Walker {
	assert.NotNil(driver, "driver")
	assert.NotEmptyStr(opts.YearUrlTemplate, "year url template")

	return Walker{
		driver:    driver,
		opts:      opts,
		extractor: extract.New(opts.Extract, tel),
		tel:       telemetry.NewScopedAPI("walker", tel),
	}
}

type walkState int

const (
	stateListingLoaded walkState = iota
	stateCardsDiscovered
	stateDetailVisited
	stateReturnedToListing
	statePaginationAttempted
	stateYearExhausted
)

func (s walkState) String() string {
	switch s {
	case stateListingLoaded:
		return "listing-loaded"
	case stateCardsDiscovered:
		return "cards-discovered"
	case stateDetailVisited:
		return "detail-visited"
	case stateReturnedToListing:
		return "returned-to-listing"
	case statePaginationAttempted:
		return "pagination-attempted"
	case stateYearExhausted:
		return "year-exhausted"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

type yearWalk struct {
	Walker
	result     YearResult
	quota      Quota
	listingUrl string
	visited    map[string]bool
	links      []string
}

// WalkYear extracts every order of year until its pages run out or quota is
// reached. Navigation failures only ever cost the page they happen on.
func (w Walker) WalkYear(ctx context.Context, year int, quota Quota) YearResult {
	ctx, span := tracer.Start(ctx, "walker:WalkYear")
	defer span.End()
	span.SetAttributes(
		attribute.Int("year", year),
		attribute.String("quota", quota.String()),
	)

	walk := &yearWalk{
		Walker:  w,
		result:  YearResult{Year: year},
		quota:   quota,
		visited: map[string]bool{},
	}

	state := stateListingLoaded
	if quota.Reached(0) {
		state = stateYearExhausted
	}
	for state != stateYearExhausted {
		if ctx.Err() != nil {
			span.SetStatus(codes.Error, ctx.Err().Error())
			break
		}
		next := walk.step(ctx, state)
		w.tel.ReportDebug("transition", year, state.String(), next.String())
		state = next
	}

	w.tel.ReportCount(report_walker_accepted, int64(len(walk.result.Orders)))
	span.SetAttributes(
		attribute.Int("pages", walk.result.Pages),
		attribute.Int("orders", len(walk.result.Orders)),
		attribute.Int("products", len(walk.result.Products)),
	)
	return walk.result
}

func (w *yearWalk) step(ctx context.Context, state walkState) walkState {
	switch state {
	case stateListingLoaded:
		return w.loadListing(ctx)
	case stateCardsDiscovered:
		return w.discoverCards(ctx)
	case stateDetailVisited:
		return w.visitDetails(ctx)
	case stateReturnedToListing:
		return w.returnToListing(ctx)
	case statePaginationAttempted:
		return w.paginate(ctx)
	}
	return stateYearExhausted
}

func (w *yearWalk) loadListing(ctx context.Context) walkState {
	target := fmt.Sprintf(w.opts.YearUrlTemplate, w.result.Year)
	err := w.driver.Navigate(ctx, target)
	if err == nil {
		err = w.driver.WaitFor(ctx, w.opts.Selectors.Body, w.opts.WaitTimeout)
	}
	if err != nil {
		w.tel.ReportWarning(report_walker_listing, err, target)
		return stateYearExhausted
	}
	w.listingUrl = w.driver.CurrentURL()
	w.visited[pageKey(w.listingUrl)] = true
	return stateCardsDiscovered
}

func (w *yearWalk) discoverCards(ctx context.Context) walkState {
	w.result.Pages++
	w.links = nil

	err := w.driver.WaitFor(ctx, w.opts.Selectors.OrderCard, w.opts.WaitTimeout)
	if err != nil {
		w.tel.ReportWarning(report_walker_cards, err, w.listingUrl)
		return statePaginationAttempted
	}

	base, err := url.Parse(w.driver.CurrentURL())
	if err != nil {
		w.tel.ReportWarning(report_walker_cards, err, w.listingUrl)
		return statePaginationAttempted
	}
	w.driver.Document().Find(w.opts.Selectors.OrderCard).Each(func(i int, card *goquery.Selection) {
		anchors := htmlutil.GetAnchors(ctx, base, card.Find(w.opts.Selectors.DetailLink))
		if len(anchors) == 0 {
			w.tel.ReportDebug("card without detail link", w.listingUrl, i)
			return
		}
		w.links = append(w.links, anchors[0].Url.String())
	})
	w.tel.ReportDebug("discovered cards", w.listingUrl, len(w.links))
	return stateDetailVisited
}

func (w *yearWalk) visitDetails(ctx context.Context) walkState {
	if len(w.links) == 0 {
		return statePaginationAttempted
	}
	for _, link := range w.links {
		if w.quota.Reached(len(w.result.Orders)) {
			return stateYearExhausted
		}
		if ctx.Err() != nil {
			return stateYearExhausted
		}
		w.visitDetail(ctx, link)
	}
	if w.quota.Reached(len(w.result.Orders)) {
		return stateYearExhausted
	}
	return stateReturnedToListing
}

func (w *yearWalk) visitDetail(ctx context.Context, link string) {
	ctx, span := tracer.Start(ctx, "walker:visitDetail")
	defer span.End()
	span.SetAttributes(attribute.String("url", link))

	w.result.Visited++
	err := w.driver.Navigate(ctx, link)
	if err == nil {
		err = w.driver.WaitFor(ctx, w.opts.Selectors.Body, w.opts.WaitTimeout)
	}
	if err != nil {
		w.result.Failed++
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load order details")
		w.tel.ReportWarning(report_walker_visit_detail, err, link)
		return
	}

	o, products := w.extractor.Order(w.driver.Document())
	w.result.Products = append(w.result.Products, products...)
	if !order.Validate(o) {
		w.result.Rejected++
		w.tel.ReportDebug(report_walker_rejected, link, o.String(), len(products))
		return
	}
	span.SetAttributes(attribute.String("order_id", o.OrderID))
	w.result.Orders = append(w.result.Orders, o)
}

func (w *yearWalk) returnToListing(ctx context.Context) walkState {
	err := w.driver.Navigate(ctx, w.listingUrl)
	if err == nil {
		err = w.driver.WaitFor(ctx, w.opts.Selectors.Body, w.opts.WaitTimeout)
	}
	if err != nil {
		w.tel.ReportWarning(report_walker_return, err, w.listingUrl)
		return stateYearExhausted
	}
	return statePaginationAttempted
}

// pageKey identifies a listing page independent of how its url is spelled:
// query parameters are sorted, a zero startIndex is dropped along with the
// fragment.
func pageKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := u.Query()
	if query.Get("startIndex") == "0" {
		query.Del("startIndex")
	}
	u.RawQuery = query.Encode()
	u.Fragment = ""
	return u.String()
}

// startIndex returns the listing offset of u, 0 when it has none.
func startIndex(u *url.URL) int {
	n, err := strconv.Atoi(u.Query().Get("startIndex"))
	if err != nil {
		return 0
	}
	return n
}

// nextPageControl returns the first visible and enabled match of the next
// page selectors, tried in order, that the driver can follow to a page not
// walked yet. Controls without a followable href and links back to earlier
// offsets are passed over.
func (w *yearWalk) nextPageControl(ctx context.Context, current *url.URL) (*goquery.Selection, string) {
	doc := w.driver.Document()
	for _, selector := range w.opts.Selectors.NextPage {
		var found *goquery.Selection
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			n := s.Nodes[0]
			if !htmlutil.IsVisible(n) || !htmlutil.IsEnabled(n) {
				return true
			}
			anchors := htmlutil.GetAnchors(ctx, current, s.First())
			if len(anchors) == 0 {
				w.tel.ReportDebug("next page control has no link", selector)
				return true
			}
			target := anchors[0].Url
			if w.visited[pageKey(target.String())] {
				w.tel.ReportDebug("next page already visited", target.String())
				return true
			}
			if target.Query().Has("startIndex") && startIndex(target) <= startIndex(current) {
				w.tel.ReportDebug("next page goes backwards", target.String())
				return true
			}
			found = s.First()
			return false
		})
		if found != nil {
			return found, selector
		}
	}
	return nil, ""
}

func (w *yearWalk) paginate(ctx context.Context) walkState {
	current, err := url.Parse(w.driver.CurrentURL())
	if err != nil {
		w.tel.ReportWarning(report_walker_pagination, err)
		return stateYearExhausted
	}
	control, selector := w.nextPageControl(ctx, current)
	if control == nil {
		return stateYearExhausted
	}

	err = w.driver.Click(ctx, control)
	if err != nil {
		w.tel.ReportWarning(report_walker_pagination, err, selector)
		return stateYearExhausted
	}
	if !chrono.Sleep(ctx, w.opts.PaginationSettle) {
		return stateYearExhausted
	}

	w.listingUrl = w.driver.CurrentURL()
	w.visited[pageKey(w.listingUrl)] = true
	return stateCardsDiscovered
}
