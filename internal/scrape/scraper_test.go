package scrape

import (
	"context"
	"fmt"
	"testing"
	"time"

	"amazon-firefly/internal/browser"
	"amazon-firefly/internal/chrono"
	"amazon-firefly/internal/extract"
	"amazon-firefly/internal/order"
	"amazon-firefly/internal/telemetry"
	"amazon-firefly/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func newScraper(t *testing.T, shop *testutil.Shop, tel telemetry.API) Scraper {
	t.Helper()
	client, err := browser.New(browser.Options{
		BaseUrl:         shop.URL,
		PageLoadTimeout: 2 * time.Second,
		PollInterval:    10 * time.Millisecond,
		PageCacheTTL:    time.Minute,
	}, tel)
	require.NoError(t, err)

	return New(client, Options{
		YearUrlTemplate: shop.YearUrlTemplate(),
		Selectors:       DefaultSelectors(),
		Extract:         extract.DefaultSelectors(),
		WaitTimeout:     100 * time.Millisecond,
	}, WithCustomTelemetryAPI(tel), WithCustomTimeAPI(chrono.FixedTime{Time: now}))
}

type expectation struct {
	ids      []string
	products int
}

func expected(years map[int][][]testutil.ShopOrder, start, end int) expectation {
	out := expectation{ids: []string{}}
	for year := start; year <= end; year++ {
		for _, page := range years[year] {
			for _, o := range page {
				if o.Valid() {
					out.ids = append(out.ids, o.ID)
				}
				if !o.NoLink && !o.Broken {
					out.products += len(o.Items)
				}
			}
		}
	}
	return out
}

func orderIds(orders []order.Order) []string {
	ids := []string{}
	for _, o := range orders {
		ids = append(ids, o.OrderID)
	}
	return ids
}

func fixtureYears() map[int][][]testutil.ShopOrder {
	rndm := testutil.NewSeededRand(42)
	o := func(year int) testutil.ShopOrder {
		return testutil.RandomShopOrder(rndm, year)
	}

	noId := o(2023)
	noId.ID = ""
	noLink := o(2023)
	noLink.NoLink = true
	broken := o(2024)
	broken.Broken = true
	noTotal := o(2024)
	noTotal.Total = ""

	return map[int][][]testutil.ShopOrder{
		2022: {
			{o(2022), o(2022)},
		},
		2023: {
			{o(2023), noId, o(2023)},
			{noLink, o(2023)},
		},
		2024: {
			{broken, o(2024)},
			{o(2024), noTotal},
			{o(2024)},
		},
	}
}

func TestExtractYears(t *testing.T) {
	years := fixtureYears()
	shop := testutil.NewShop(t, testutil.ShopOptions{Years: years})
	rec := &telemetry.Recorder{}
	s := newScraper(t, shop, rec)

	result := s.ExtractYears(context.Background(), 2022, 2024, Unlimited())

	exp := expected(years, 2022, 2024)
	require.Equal(t, exp.ids, orderIds(result.Orders))
	require.Len(t, result.Products, exp.products)

	for _, o := range result.Orders {
		require.True(t, order.Validate(o), o.String())
		require.Equal(t, order.DefaultMerchant, o.Merchant)
	}

	require.Len(t, result.Years, 3)
	require.Equal(t, []int{1, 2, 3}, []int{result.Years[0].Pages, result.Years[1].Pages, result.Years[2].Pages})
	require.Equal(t, 1, result.Years[1].Rejected)
	require.Equal(t, 1, result.Years[2].Failed)
	require.Equal(t, 1, result.Years[2].Rejected)

	// the broken details page is the only warning
	warnings := rec.Reports("warning")
	require.Len(t, warnings, 1)
	require.Equal(t, "scrape: walker: "+report_walker_visit_detail, warnings[0].ID)
}

func TestRejectedOrderKeepsProducts(t *testing.T) {
	noId := testutil.RandomShopOrder(testutil.NewSeededRand(1), 2024)
	noId.ID = ""
	noId.Items = []testutil.ShopItem{{Title: "Cavo HDMI", Quantity: 2, Price: "7,50"}}

	shop := testutil.NewShop(t, testutil.ShopOptions{
		Years: map[int][][]testutil.ShopOrder{2024: {{noId}}},
	})
	s := newScraper(t, shop, &telemetry.Recorder{})

	result := s.ExtractYears(context.Background(), 2024, 2024, Unlimited())
	require.Empty(t, result.Orders)
	require.Equal(t, []order.Product{{
		Date:           "Ordine effettuato il " + noId.Date,
		Product:        "Cavo HDMI",
		Quantity:       2,
		Price:          "7,50",
		ShipmentStatus: "Consegnato",
	}}, result.Products)
}

func TestQuotaNeverExceeded(t *testing.T) {
	rndm, seed := testutil.NewRand(t)
	years := testutil.RandomShop(rndm, []int{2021, 2022, 2023})
	total := len(expected(years, 2021, 2023).ids)

	for n := 0; n <= total+1; n++ {
		shop := testutil.NewShop(t, testutil.ShopOptions{Years: years})
		s := newScraper(t, shop, &telemetry.Recorder{})

		result := s.ExtractYears(context.Background(), 2021, 2023, Cap(n))
		require.Equal(t, min(n, total), len(result.Orders), "seed %d, max orders %d", seed, n)
		require.Equal(t, expected(years, 2021, 2023).ids[:min(n, total)], orderIds(result.Orders))

		if n == 0 {
			require.Zero(t, shop.ListingHits(), "no year is started with a zero quota")
		}
	}
}

func TestSwappedYearBounds(t *testing.T) {
	years := fixtureYears()
	shop := testutil.NewShop(t, testutil.ShopOptions{Years: years})

	forward := newScraper(t, shop, &telemetry.Recorder{}).
		ExtractYears(context.Background(), 2022, 2024, Unlimited())
	reversed := newScraper(t, shop, &telemetry.Recorder{}).
		ExtractYears(context.Background(), 2024, 2022, Unlimited())

	if diff := cmp.Diff(forward.Orders, reversed.Orders); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff(forward.Products, reversed.Products); diff != "" {
		t.Fatal(diff)
	}
}

func TestDefaultYearIsCurrent(t *testing.T) {
	years := fixtureYears()
	shop := testutil.NewShop(t, testutil.ShopOptions{Years: years})
	s := newScraper(t, shop, &telemetry.Recorder{})

	result := s.ExtractYears(context.Background(), 0, 0, Unlimited())
	require.Len(t, result.Years, 1)
	require.Equal(t, 2024, result.Years[0].Year)
	require.Equal(t, expected(years, 2024, 2024).ids, orderIds(result.Orders))

	result = s.ExtractYears(context.Background(), 2023, 0, Unlimited())
	require.Equal(t, expected(years, 2023, 2024).ids, orderIds(result.Orders))
}

func TestBrokenYearIsSkipped(t *testing.T) {
	years := fixtureYears()
	shop := testutil.NewShop(t, testutil.ShopOptions{
		Years:       years,
		BrokenYears: map[int]bool{2023: true},
	})
	rec := &telemetry.Recorder{}
	s := newScraper(t, shop, rec)

	result := s.ExtractYears(context.Background(), 2022, 2024, Unlimited())
	exp := append(expected(years, 2022, 2022).ids, expected(years, 2024, 2024).ids...)
	require.Equal(t, exp, orderIds(result.Orders))
	require.Zero(t, result.Years[1].Pages)

	var listingWarnings int
	for _, r := range rec.Reports("warning") {
		if r.ID == "scrape: walker: "+report_walker_listing {
			listingWarnings++
		}
	}
	require.Equal(t, 1, listingWarnings)
}

func TestEmptyYear(t *testing.T) {
	shop := testutil.NewShop(t, testutil.ShopOptions{
		Years: map[int][][]testutil.ShopOrder{2024: {}},
	})
	s := newScraper(t, shop, &telemetry.Recorder{})

	result := s.ExtractYears(context.Background(), 2024, 2024, Unlimited())
	require.Empty(t, result.Orders)
	require.Equal(t, 1, result.Years[0].Pages)
}

func TestLoopingPaginationEnds(t *testing.T) {
	years := fixtureYears()
	shop := testutil.NewShop(t, testutil.ShopOptions{Years: years, LoopPagination: true})
	s := newScraper(t, shop, &telemetry.Recorder{})

	result := s.ExtractYears(context.Background(), 2024, 2024, Unlimited())
	require.Equal(t, expected(years, 2024, 2024).ids, orderIds(result.Orders))
	require.Equal(t, 3, result.Years[0].Pages)
}

func TestPaginationSkipsUnfollowableControls(t *testing.T) {
	years := fixtureYears()
	shop := testutil.NewShop(t, testutil.ShopOptions{Years: years, ButtonNext: true})
	s := newScraper(t, shop, &telemetry.Recorder{})

	result := s.ExtractYears(context.Background(), 2024, 2024, Unlimited())
	require.Equal(t, expected(years, 2024, 2024).ids, orderIds(result.Orders))
	require.Equal(t, 3, result.Years[0].Pages)
}

func TestPaginationNeverGoesBack(t *testing.T) {
	years := fixtureYears()
	shop := testutil.NewShop(t, testutil.ShopOptions{
		Years:           years,
		PlainPagination: true,
		LoopPagination:  true,
	})
	s := newScraper(t, shop, &telemetry.Recorder{})

	result := s.ExtractYears(context.Background(), 2024, 2024, Unlimited())
	require.Equal(t, expected(years, 2024, 2024).ids, orderIds(result.Orders))
	require.Equal(t, 3, result.Years[0].Pages)
}

func TestPageKey(t *testing.T) {
	cases := []struct {
		a, b string
		same bool
	}{
		{a: "/o?timeFilter=year-2024", b: "/o?timeFilter=year-2024&startIndex=0", same: true},
		{a: "/o?startIndex=10&timeFilter=year-2024", b: "/o?timeFilter=year-2024&startIndex=10", same: true},
		{a: "/o?timeFilter=year-2024#top", b: "/o?timeFilter=year-2024", same: true},
		{a: "/o?timeFilter=year-2024", b: "/o?timeFilter=year-2024&startIndex=10", same: false},
	}
	for _, test := range cases {
		require.Equal(t, test.same, pageKey(test.a) == pageKey(test.b), test.a+" "+test.b)
	}
}

func TestYearRange(t *testing.T) {
	cases := []struct {
		start, end             int
		expectStart, expectEnd int
	}{
		{start: 2020, end: 2022, expectStart: 2020, expectEnd: 2022},
		{start: 2022, end: 2020, expectStart: 2020, expectEnd: 2022},
		{start: 0, end: 0, expectStart: 2024, expectEnd: 2024},
		{start: 2021, end: 0, expectStart: 2021, expectEnd: 2024},
		{start: 0, end: 2021, expectStart: 2021, expectEnd: 2024},
	}
	for _, test := range cases {
		start, end := YearRange(test.start, test.end, 2024)
		require.Equal(t, test.expectStart, start, fmt.Sprint(test))
		require.Equal(t, test.expectEnd, end, fmt.Sprint(test))
	}
}

func TestQuota(t *testing.T) {
	require.False(t, Unlimited().Reached(1_000_000))
	require.Equal(t, -1, Unlimited().Max())
	require.Equal(t, Unlimited(), FromMaxOrders(-1))

	q := FromMaxOrders(5)
	require.True(t, q.Limited())
	require.False(t, q.Reached(4))
	require.True(t, q.Reached(5))
	require.Equal(t, 2, q.Remaining(3).Max())
	require.Equal(t, 0, q.Remaining(9).Max())
	require.True(t, Cap(0).Reached(0))
	require.True(t, Cap(-3).Reached(0))
}
