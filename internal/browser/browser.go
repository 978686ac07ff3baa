// Package browser implements the page driver the scraper walks amazon with.
//
// It is a plain http client that keeps the notion of a "current page" the way
// a browser tab does: Navigate replaces the current document, Click follows the
// link of an element on it and WaitFor polls the current url until an element
// shows up or a bounded timeout passes. Cookies and a local storage map make up
// the session that is persisted between runs.
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"amazon-firefly/internal/chrono"
	"amazon-firefly/internal/telemetry"
	"amazon-firefly/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("amazon-firefly/browser")

var (
	ErrTimeout      = errors.New("timed out waiting for page")
	ErrNotClickable = errors.New("element has no link to follow")
)

const (
	report_browser_navigate = "browser.navigate"
	report_browser_wait     = "browser.wait-for"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	BaseUrl   string
	UserAgent string
	// PageLoadTimeout bounds a single page request.
	PageLoadTimeout time.Duration
	// PollInterval is how often WaitFor reloads the current page.
	PollInterval time.Duration
	// RequestsPerSecond limits navigation, 0 means unlimited.
	RequestsPerSecond float64
	// PageCacheTTL keeps fetched pages around so returning to a page already
	// seen does not hit the network again, 0 disables the cache.
	PageCacheTTL time.Duration
	// DumpOutput receives every http exchange when not nil.
	DumpOutput restyutil.InstrumentOutput
}

type page struct {
	url  *url.URL
	body []byte
}

type Client struct {
	baseUrl *url.URL
	http    *resty.Client
	jar     *cookiejar.Jar
	limiter *rate.Limiter
	pages   *gocache.Cache
	tel     telemetry.API
	opts    Options

	mu      sync.Mutex
	current *url.URL
	doc     *goquery.Document
	storage map[string]string
}

func New(opts Options, tel telemetry.API) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = 30 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetHeader("accept-language", "it-IT,it;q=0.9,en;q=0.8")
	client.SetTimeout(opts.PageLoadTimeout)

	tel = telemetry.NewScopedAPI("browser", tel)
	telemetry.InstrumentResty(client, tel)
	restyutil.InstrumentClient(client, tracer, opts.DumpOutput)

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	var pages *gocache.Cache
	if opts.PageCacheTTL > 0 {
		pages = gocache.New(opts.PageCacheTTL, 2*opts.PageCacheTTL)
	}

	return &Client{
		baseUrl: baseUrl,
		http:    client,
		jar:     jar,
		limiter: rate.NewLimiter(limit, 1),
		pages:   pages,
		tel:     tel,
		opts:    opts,
		storage: map[string]string{},
	}, nil
}

// BaseUrl returns the site root the client was created for.
func (c *Client) BaseUrl() *url.URL {
	return c.baseUrl
}

// Resolve resolves ref against the current page, or the base url before any
// navigation happened.
func (c *Client) Resolve(ref string) (*url.URL, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	base := c.current
	c.mu.Unlock()
	if base == nil {
		base = c.baseUrl
	}
	return base.ResolveReference(parsed), nil
}

func (c *Client) fetch(ctx context.Context, target *url.URL) (page, error) {
	ctx, span := tracer.Start(ctx, "browser:fetch")
	defer span.End()

	err := c.limiter.Wait(ctx)
	if err != nil {
		return page{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.PageLoadTimeout)
	defer cancel()

	res, err := c.http.R().
		SetContext(ctx).
		Get(target.String())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return page{}, fmt.Errorf("%w: %s", ErrTimeout, target)
		}
		return page{}, err
	}
	if res.IsError() {
		return page{}, fmt.Errorf("%s: %s", target, res.Status())
	}

	final := target
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		final = res.RawResponse.Request.URL
	}
	p := page{url: final, body: res.Body()}
	if c.pages != nil {
		c.pages.SetDefault(target.String(), p)
		c.pages.SetDefault(final.String(), p)
	}
	return p, nil
}

func (c *Client) load(p page) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.body))
	if err != nil {
		return err
	}
	doc.Url = p.url

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = p.url
	c.doc = doc
	return nil
}

// Navigate makes ref the current page. Pages still in the page cache are
// served from it. On failure the current page is left unchanged.
func (c *Client) Navigate(ctx context.Context, ref string) error {
	target, err := c.Resolve(ref)
	if err != nil {
		return err
	}

	if c.pages != nil {
		cached, ok := c.pages.Get(target.String())
		if ok {
			c.tel.ReportDebug("page cache hit", target.String())
			return c.load(cached.(page))
		}
	}

	p, err := c.fetch(ctx, target)
	if err != nil {
		c.tel.ReportDebug(report_browser_navigate, target.String(), err.Error())
		return fmt.Errorf("navigate: %w", err)
	}
	return c.load(p)
}

// Reload fetches the current page again, bypassing the page cache.
func (c *Client) Reload(ctx context.Context) error {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	if current == nil {
		current = c.baseUrl
	}

	p, err := c.fetch(ctx, current)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return c.load(p)
}

// WaitFor waits until selector matches something on the current page,
// reloading it every poll interval. It returns ErrTimeout once timeout passes.
func (c *Client) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if c.Document().Find(selector).Length() > 0 {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.tel.ReportDebug(report_browser_wait, selector, timeout.String())
			return fmt.Errorf("%w: %s", ErrTimeout, selector)
		}
		if !chrono.Sleep(ctx, min(c.opts.PollInterval, remaining)) {
			return ctx.Err()
		}
		err := c.Reload(ctx)
		if err != nil {
			c.tel.ReportDebug(report_browser_wait, selector, err.Error())
		}
	}
}

// Click follows the link of the first element in target.
func (c *Client) Click(ctx context.Context, target *goquery.Selection) error {
	href, ok := target.First().Attr("href")
	if !ok || href == "" || href == "#" {
		return ErrNotClickable
	}
	return c.Navigate(ctx, href)
}

// Document returns the current page, an empty document before any navigation.
func (c *Client) Document() *goquery.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}
	return c.doc
}

// CurrentURL returns the url of the current page or "".
func (c *Client) CurrentURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.String()
}

// Cookies returns the cookies the client would send to the base url.
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.baseUrl)
}

func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.jar.SetCookies(c.baseUrl, cookies)
}

// Storage returns a copy of the local storage.
func (c *Client) Storage() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.storage))
	for k, v := range c.storage {
		out[k] = v
	}
	return out
}

func (c *Client) SetStorage(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storage[key] = value
}
