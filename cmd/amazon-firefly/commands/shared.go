package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"amazon-firefly/internal/browser"
	"amazon-firefly/internal/cache"
	"amazon-firefly/internal/chrono"
	"amazon-firefly/internal/pipeline"
	"amazon-firefly/internal/scrape"
	"amazon-firefly/internal/telemetry"
	"amazon-firefly/lib/restyutil"

	"github.com/jedib0t/go-pretty/v6/table"
)

const pageDumpDir = ".dev/pages"

func openStore(ctx context.Context) (cache.Store, error) {
	return cache.Open(ctx, cache.Config{
		Backend:   cfg.CacheBackend,
		Dir:       cfg.CacheDir,
		DSN:       cfg.CacheDSN,
		AuthToken: cfg.CacheAuthToken,
	}, chrono.NewStandardTime())
}

func newBrowser() (*browser.Client, error) {
	opts := browser.Options{
		BaseUrl:           cfg.BaseUrl,
		UserAgent:         cfg.UserAgent,
		PageLoadTimeout:   cfg.PageLoadTimeoutDuration(),
		PollInterval:      cfg.LoginPollIntervalDuration(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		PageCacheTTL:      cfg.PageCacheTTLDuration(),
	}
	if debug {
		output, err := restyutil.NewFilesystemOutput(pageDumpDir)
		if err != nil {
			return nil, fmt.Errorf("create page dump dir: %w", err)
		}
		opts.DumpOutput = output
	}
	return browser.New(opts, telemetry.SlogAPI{})
}

// signIn restores the saved session and waits until the account is signed
// in.
func signIn(ctx context.Context, client *browser.Client) error {
	restored, err := client.RestoreSession(cfg.SessionFile)
	if err != nil {
		slog.Warn("failed to restore session", "file", cfg.SessionFile, "err", err)
	} else if restored {
		slog.Info("restored session", "file", cfg.SessionFile)
	}

	return client.WaitForLogin(ctx, browser.LoginOptions{
		Marker:       cfg.LoginMarker,
		SessionFile:  cfg.SessionFile,
		PollInterval: cfg.LoginPollIntervalDuration(),
		Timeout:      cfg.LoginTimeoutDuration(),
	})
}

func saveSession(client *browser.Client) {
	if noSessionSave {
		return
	}
	err := client.SaveSession(cfg.SessionFile)
	if err != nil {
		slog.Warn("failed to save session", "file", cfg.SessionFile, "err", err)
	}
}

func newScraper(client *browser.Client) scrape.Scraper {
	return scrape.New(client, scrape.Options{
		YearUrlTemplate:  cfg.YearUrlTemplate,
		Selectors:        cfg.Selectors.Listing,
		Extract:          cfg.Selectors.Details,
		WaitTimeout:      cfg.ElementWaitTimeoutDuration(),
		PaginationSettle: cfg.PaginationSettleDuration(),
	})
}

// runScrape signs in and runs the pipeline with a live scraper.
func runScrape(ctx context.Context, opts pipeline.Options) (pipeline.Report, error) {
	store, err := openStore(ctx)
	if err != nil {
		return pipeline.Report{}, err
	}
	defer store.Close()

	client, err := newBrowser()
	if err != nil {
		return pipeline.Report{}, err
	}
	err = signIn(ctx, client)
	if err != nil {
		return pipeline.Report{}, err
	}
	defer saveSession(client)

	return pipeline.New(newScraper(client), store).Run(ctx, opts)
}

func pipelineOptions() pipeline.Options {
	return pipeline.Options{
		StartYear:  cfg.StartYear,
		EndYear:    cfg.EndYear,
		Quota:      cfg.Quota(),
		OutputDir:  cfg.OutputDir,
		DateFormat: cfg.DateFormat,
	}
}

func printReport(report pipeline.Report) {
	if report.RunID == "" {
		return
	}
	if len(report.Years) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Year", "Pages", "Visited", "Orders", "Products", "Rejected", "Failed"})
		for _, y := range report.Years {
			t.AppendRow(table.Row{y.Year, y.Pages, y.Visited, len(y.Orders), len(y.Products), y.Rejected, y.Failed})
		}
		t.AppendFooter(table.Row{"Total", "", "", report.Orders, report.Products, "", ""})
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendRow(table.Row{"Run", report.RunID})
	if report.CacheName != "" {
		t.AppendRow(table.Row{"Cache", report.CacheName})
	}
	if report.Artifacts.OrdersPath != "" {
		t.AppendRow(table.Row{"Orders csv", report.Artifacts.OrdersPath})
	}
	if report.Artifacts.ProductsPath != "" {
		t.AppendRow(table.Row{"Products csv", report.Artifacts.ProductsPath})
	}
	if report.Artifacts.NeedsReview > 0 {
		t.AppendRow(table.Row{"Needs review", report.Artifacts.NeedsReview})
	}
	t.AppendRow(table.Row{"Duration", report.Duration.Round(time.Millisecond)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
