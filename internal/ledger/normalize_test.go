package ledger

import (
	"strings"
	"testing"
	"time"

	"amazon-firefly/internal/order"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

func TestFormatDate(t *testing.T) {
	cases := []struct {
		raw    string
		format string
		expect string
		ok     bool
	}{
		{raw: "15 gen 2024", format: "%Y-%m-%d", expect: "2024-01-15", ok: true},
		{raw: "2024-01-15", format: "%Y-%m-%d", expect: "2024-01-15", ok: true},
		{raw: "01/15/2024", format: "%Y-%m-%d", expect: "2024-01-15", ok: true},
		{raw: "15 GEN 2024", format: "%Y-%m-%d", expect: "2024-01-15", ok: true},
		{raw: "Ordine effettuato il 3 settembre 2023", format: "%Y-%m-%d", expect: "2023-09-03", ok: true},
		{raw: "1 dic. 2022", format: "%d/%m/%Y", expect: "01/12/2022", ok: true},
		{raw: "31 feb 2024", format: "%Y-%m-%d", expect: "2024-03-01", ok: false},
		{raw: "", format: "%Y-%m-%d", expect: "2024-03-01", ok: false},
		{raw: "ieri", format: "%Y-%m-%d", expect: "2024-03-01", ok: false},
	}
	for _, test := range cases {
		formatted, ok := FormatDate(test.raw, test.format, now)
		require.Equal(t, test.ok, ok, test.raw)
		require.Equal(t, test.expect, formatted, test.raw)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		raw    string
		expect string
		ok     bool
	}{
		{raw: "EUR 12,34", expect: "-12.34", ok: true},
		{raw: "EUR12.34", expect: "-12.34", ok: true},
		{raw: "EUR 1.234,56", expect: "-1234.56", ok: true},
		{raw: "EUR 1,234.56", expect: "-1234.56", ok: true},
		{raw: "EUR 1.234", expect: "-1234.00", ok: true},
		{raw: "EUR 5", expect: "-5.00", ok: true},
		{raw: "EUR 0,5", expect: "-0.50", ok: true},
		{raw: "12,34 €", expect: "-12.34", ok: true},
		{raw: "", expect: "-0.00", ok: false},
		{raw: "EUR", expect: "-0.00", ok: false},
		{raw: "garbage", expect: "-0.00", ok: false},
	}
	for _, test := range cases {
		formatted, ok := FormatAmount(test.raw)
		require.Equal(t, test.ok, ok, test.raw)
		require.Equal(t, test.expect, formatted, test.raw)
	}
}

func TestComposeDescription(t *testing.T) {
	cases := []struct {
		name   string
		order  order.Order
		expect string
	}{
		{
			name:   "appends id",
			order:  order.Order{OrderID: "405-1", Description: "  USB   cable\n"},
			expect: "USB cable (Order: 405-1)",
		},
		{
			name:   "id already present",
			order:  order.Order{OrderID: "405-1", Description: "Refill 405-1"},
			expect: "Refill 405-1",
		},
		{
			name:   "fallback",
			order:  order.Order{OrderID: "405-1"},
			expect: "Amazon Purchase (Order: 405-1)",
		},
		{
			name:   "truncated before appending",
			order:  order.Order{OrderID: "405-1", Description: strings.Repeat("x", 150)},
			expect: strings.Repeat("x", 100) + " (Order: 405-1)",
		},
	}
	for _, test := range cases {
		require.Equal(t, test.expect, ComposeDescription(test.order), test.name)
	}
}

func TestCleanPrice(t *testing.T) {
	require.Equal(t, "12,34", CleanPrice("12,34 €"))
	require.Equal(t, "12,34", CleanPrice("EUR 12,34"))
	require.Equal(t, "n/d", CleanPrice(" n/d "))
}

func TestSanitizeCell(t *testing.T) {
	require.Equal(t, "Pen & Paper", SanitizeCell("Pen & Paper"))
	require.Equal(t, "bold", SanitizeCell("<b>bold</b>"))
	require.Equal(t, "'=SUM(A1)", SanitizeCell("=SUM(A1)"))
	require.Equal(t, "", SanitizeCell(""))
}

func TestSanitizeCellKeepsPlainText(t *testing.T) {
	cases := []struct {
		in     string
		expect string
	}{
		{in: "Adattatore <USB-C>", expect: "Adattatore <USB-C>"},
		{in: "Cavo 3 < 5 metri > 2", expect: "Cavo 3 < 5 metri > 2"},
		{in: "Tom &amp; Jerry", expect: "Tom &amp; Jerry"},
		{in: "Cavo<br/>HDMI<script>alert(1)</script>", expect: "CavoHDMI"},
		{in: `<span class="x">Pen &amp; Paper</span>`, expect: "Pen & Paper"},
		{in: "-<b>5</b>", expect: "'-5"},
	}
	for _, test := range cases {
		require.Equal(t, test.expect, SanitizeCell(test.in), test.in)
	}
}
