package telemetry

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("walker", NewScopedAPI("scrape", rec))

	scoped.ReportBroken("visit-detail", "https://example.com")
	scoped.ReportWarning("pagination")
	scoped.ReportCount("accepted", 3)

	broken := rec.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "scrape: walker: visit-detail", broken[0].ID)
	require.Equal(t, []any{"https://example.com"}, broken[0].Params)

	require.Len(t, rec.Reports("warning"), 1)
	counts := rec.Reports("count")
	require.Len(t, counts, 1)
	require.Equal(t, []any{int64(3)}, counts[0].Params)
	require.Len(t, rec.Reports(""), 3)
}

func TestSlogAPI(t *testing.T) {
	buff := bytes.NewBuffer(nil)
	logger := slog.New(slog.NewTextHandler(buff, &slog.HandlerOptions{Level: slog.LevelDebug}))
	api := NewSlogAPI(logger, "run_id", "abc")

	api.ReportWarning("walker.listing", "timeout")
	api.ReportDebug("order extracted", "123-456")

	out := buff.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "level=WARN")
	require.Contains(t, lines[0], "id=walker.listing")
	require.Contains(t, lines[0], "params.0=timeout")
	require.Contains(t, lines[0], "run_id=abc")
	require.Contains(t, lines[1], "level=DEBUG")
	require.Contains(t, lines[1], "params.0=123-456")
}
