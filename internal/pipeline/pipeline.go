// Package pipeline runs the stages of a conversion in order: get orders
// (scraping or from the cache), keep them in the cache, write the csv
// artifacts and validate the orders artifact.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"amazon-firefly/internal/cache"
	"amazon-firefly/internal/chrono"
	"amazon-firefly/internal/ledger"
	"amazon-firefly/internal/order"
	"amazon-firefly/internal/scrape"
	"amazon-firefly/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("amazon-firefly/pipeline")

const (
	report_pipeline_cache_save = "pipeline.cache-save"
	report_pipeline_validate   = "pipeline.validate"
)

// Extractor is the scraping stage.
type Extractor interface {
	ExtractYears(ctx context.Context, start, end int, quota scrape.Quota) scrape.Result
}

type Options struct {
	StartYear int
	EndYear   int
	Quota     scrape.Quota
	// FromCache skips scraping and loads the named cache instance instead.
	FromCache string
	// SaveCache stores scraped results in the cache.
	SaveCache bool
	// SkipProcess stops the run once orders are scraped and cached.
	SkipProcess bool
	OutputDir   string
	DateFormat  string
}

// Report summarizes a run.
type Report struct {
	RunID     string
	CacheName string
	Years     []scrape.YearResult
	Orders    int
	Products  int
	Artifacts ledger.Artifacts
	Duration  time.Duration
}

type Pipeline struct {
	extractor Extractor
	store     cache.Store
	time      chrono.TimeAPI
	tel       telemetry.API
}

type Option func(cfg *pipelineCfg)

type pipelineCfg struct {
	tel  telemetry.API
	time chrono.TimeAPI
}

func WithCustomTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *pipelineCfg) {
		cfg.tel = tel
	}
}

func WithCustomTimeAPI(time chrono.TimeAPI) Option {
	return func(cfg *pipelineCfg) {
		cfg.time = time
	}
}

// New creates a pipeline, extractor may be nil when only cached runs are
// made and store may be nil when the cache is not used.
func New(extractor Extractor, store cache.Store, options ...Option) Pipeline {
	var cfg pipelineCfg
	for _, o := range options {
		o(&cfg)
	}
	if cfg.tel == nil {
		cfg.tel = telemetry.SlogAPI{}
	}
	if cfg.time == nil {
		cfg.time = chrono.NewStandardTime()
	}
	return Pipeline{
		extractor: extractor,
		store:     store,
		time:      cfg.time,
		tel:       telemetry.NewScopedAPI("pipeline", cfg.tel),
	}
}

func (p Pipeline) collect(ctx context.Context, opts Options, report *Report) ([]order.Order, []order.Product, error) {
	if opts.FromCache != "" {
		if p.store == nil {
			return nil, nil, fmt.Errorf("a cache instance was requested but no cache is configured")
		}
		orders, products, err := p.store.Load(ctx, opts.FromCache)
		if err != nil {
			return nil, nil, fmt.Errorf("load cache: %w", err)
		}
		report.CacheName = opts.FromCache
		return orders, products, nil
	}

	if p.extractor == nil {
		return nil, nil, fmt.Errorf("no cache instance was requested and scraping is unavailable")
	}
	result := p.extractor.ExtractYears(ctx, opts.StartYear, opts.EndYear, opts.Quota)
	report.Years = result.Years

	if opts.SaveCache && p.store != nil {
		name, err := p.store.Save(ctx, "", result.Orders, result.Products)
		if err != nil {
			// the scrape is still usable without a cached copy
			p.tel.ReportWarning(report_pipeline_cache_save, err)
		} else {
			report.CacheName = name
		}
	}
	return result.Orders, result.Products, nil
}

// Run executes every stage. It fails when there is nothing to convert
// (ledger.ErrNoOrders) or the written artifact does not pass validation
// (ledger.ErrInvalidArtifact).
func (p Pipeline) Run(ctx context.Context, opts Options) (Report, error) {
	ctx, span := tracer.Start(ctx, "pipeline:Run")
	defer span.End()

	start := p.time.Now()
	report := Report{RunID: uuid.NewString()}
	span.SetAttributes(attribute.String("run_id", report.RunID))
	p.tel.ReportDebug("run started", report.RunID, opts.StartYear, opts.EndYear, opts.Quota.String())

	orders, products, err := p.collect(ctx, opts, &report)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}
	report.Orders = len(orders)
	report.Products = len(products)

	if opts.SkipProcess {
		report.Duration = p.time.Now().Sub(start)
		return report, nil
	}

	processor := ledger.NewProcessor(
		opts.DateFormat,
		ledger.WithCustomTelemetryAPI(p.tel),
		ledger.WithCustomTimeAPI(p.time),
	)
	report.Artifacts, err = processor.Write(opts.OutputDir, orders, products)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	err = ledger.ValidateOrdersCSV(report.Artifacts.OrdersPath, opts.DateFormat)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_validate, err, report.Artifacts.OrdersPath)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	report.Duration = p.time.Now().Sub(start)
	span.SetAttributes(
		attribute.Int("orders", report.Orders),
		attribute.Int("products", report.Products),
	)
	return report, nil
}
