package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollapse(t *testing.T) {
	cases := []struct {
		in     string
		expect string
	}{
		{in: "", expect: ""},
		{in: "  hello  ", expect: "hello"},
		{in: "USB-C\n\t  cable   2m", expect: "USB-C cable 2m"},
	}
	for _, test := range cases {
		require.Equal(t, test.expect, Collapse(test.in))
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", Truncate("abc", 5))
	require.Equal(t, "ab", Truncate("abc", 2))
	require.Equal(t, "caffè", Truncate("caffè latte", 5))
	require.Equal(t, "", Truncate("abc", 0))
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "12,34 €", Normalize("12,34\u00a0€\u200b"))
	require.Equal(t, "Totale: 5,00 €", Normalize("\n  Totale:\n   5,00 €  "))
}

func TestNormalizeKeepsWordBreaks(t *testing.T) {
	cases := []struct {
		in     string
		expect string
	}{
		{in: "Cavo\nHDMI\t2.1\r\nUltra", expect: "Cavo HDMI 2.1 Ultra"},
		{in: "Cavo\x00HDMI", expect: "CavoHDMI"},
		{in: "a \u200b b", expect: "a b"},
	}
	for _, test := range cases {
		require.Equal(t, test.expect, Normalize(test.in))
	}
}
