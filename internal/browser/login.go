package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"amazon-firefly/internal/chrono"
)

var ErrLoginTimeout = errors.New("timed out waiting for login")

const report_browser_login = "browser.wait-for-login"

type LoginOptions struct {
	// Marker is a selector only present on pages of a signed in account.
	Marker       string
	SessionFile  string
	PollInterval time.Duration
	Timeout      time.Duration
}

// LoggedIn reports whether the current page shows the signed in marker.
func (c *Client) LoggedIn(marker string) bool {
	return c.Document().Find(marker).Length() > 0
}

// WaitForLogin opens the base url and, if it does not show a signed in
// account, keeps re-reading the session file and reloading until it does or
// opts.Timeout passes. This is the window in which the user signs in with a
// real browser and imports its cookies.
func (c *Client) WaitForLogin(ctx context.Context, opts LoginOptions) error {
	ctx, span := tracer.Start(ctx, "browser:WaitForLogin")
	defer span.End()

	err := c.Navigate(ctx, c.baseUrl.String())
	if err != nil {
		return err
	}
	if c.LoggedIn(opts.Marker) {
		return nil
	}

	c.tel.ReportWarning(
		report_browser_login,
		"not signed in, sign in with your browser and run `session import`",
		opts.SessionFile,
	)

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	for {
		if !chrono.Sleep(ctx, opts.PollInterval) {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w after %s", ErrLoginTimeout, opts.Timeout)
			}
			return ctx.Err()
		}

		if opts.SessionFile != "" {
			_, err := c.RestoreSession(opts.SessionFile)
			if err != nil {
				c.tel.ReportWarning(report_browser_login, err.Error())
			}
		}
		err := c.Reload(ctx)
		if err != nil {
			c.tel.ReportDebug(report_browser_login, err.Error())
			continue
		}
		if c.LoggedIn(opts.Marker) {
			return nil
		}
	}
}
