package chrono

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixedTime(t *testing.T) {
	at := time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)
	require.Equal(t, at, FixedTime{Time: at}.Now())
}

func TestSleep(t *testing.T) {
	require.True(t, Sleep(context.Background(), 0))
	require.True(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, Sleep(ctx, time.Hour))
}
