// Package scrape walks the order history of an account, year by year and
// page by page, and collects the orders and products on it.
package scrape

import (
	"context"

	"amazon-firefly/internal/chrono"
	"amazon-firefly/internal/order"
	"amazon-firefly/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

const report_scraper_years = "scraper.years"

// Result holds everything a range of years produced, in extraction order.
type Result struct {
	Orders   []order.Order
	Products []order.Product
	Years    []YearResult
}

type Scraper struct {
	walker Walker
	time   chrono.TimeAPI
	tel    telemetry.API
}

type Option func(cfg *scraperCfg)

type scraperCfg struct {
	tel  telemetry.API
	time chrono.TimeAPI
}

func WithCustomTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *scraperCfg) {
		cfg.tel = tel
	}
}

func WithCustomTimeAPI(time chrono.TimeAPI) Option {
	return func(cfg *scraperCfg) {
		cfg.time = time
	}
}

func New(driver Driver, opts Options, options ...Option) Scraper {
	var cfg scraperCfg
	for _, o := range options {
		o(&cfg)
	}
	if cfg.tel == nil {
		cfg.tel = telemetry.SlogAPI{}
	}
	if cfg.time == nil {
		cfg.time = chrono.NewStandardTime()
	}
	tel := telemetry.NewScopedAPI("scrape", cfg.tel)

	return Scraper{
		walker: NewWalker(driver, opts, tel),
		time:   cfg.time,
		tel:    tel,
	}
}

// YearRange resolves the configured bounds, 0 meaning unset. Unset bounds
// default to the current year and reversed bounds are swapped.
func YearRange(start, end, currentYear int) (int, int) {
	if start == 0 {
		start = currentYear
	}
	if end == 0 {
		end = currentYear
	}
	if start > end {
		start, end = end, start
	}
	return start, end
}

// ExtractYears walks every year in [start, end] in ascending order. Each year
// gets what is left of quota, no year is started once it is used up.
func (s Scraper) ExtractYears(ctx context.Context, start, end int, quota Quota) Result {
	ctx, span := tracer.Start(ctx, "scraper:ExtractYears")
	defer span.End()

	start, end = YearRange(start, end, s.time.Now().Year())
	span.SetAttributes(
		attribute.Int("start", start),
		attribute.Int("end", end),
		attribute.String("quota", quota.String()),
	)
	s.tel.ReportDebug(report_scraper_years, start, end, quota.String())

	var result Result
	for year := start; year <= end; year++ {
		if quota.Reached(len(result.Orders)) {
			s.tel.ReportDebug("quota reached", len(result.Orders), year)
			break
		}
		if ctx.Err() != nil {
			break
		}

		yr := s.walker.WalkYear(ctx, year, quota.Remaining(len(result.Orders)))
		result.Orders = append(result.Orders, yr.Orders...)
		result.Products = append(result.Products, yr.Products...)
		result.Years = append(result.Years, yr)
	}

	span.SetAttributes(
		attribute.Int("orders", len(result.Orders)),
		attribute.Int("products", len(result.Products)),
	)
	return result
}
