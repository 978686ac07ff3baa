package ledger

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"amazon-firefly/internal/order"
	"amazon-firefly/lib/textutil"

	"github.com/ncruces/go-strftime"
	"github.com/shopspring/decimal"
)

const (
	DescriptionFallback = "Amazon Purchase"
	ZeroAmount          = "-0.00"
)

var italianMonths = map[string]time.Month{
	"gen": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"mag": time.May,
	"giu": time.June,
	"lug": time.July,
	"ago": time.August,
	"set": time.September,
	"ott": time.October,
	"nov": time.November,
	"dic": time.December,
}

var (
	italianDateRegex = regexp.MustCompile(`(?i)(\d{1,2})\s+(gen|feb|mar|apr|mag|giu|lug|ago|set|ott|nov|dic)[a-z]*\.?\s+(\d{4})`)
	isoDateRegex     = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	usDateRegex      = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
)

func makeDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out of range values, 31/02 would become 03/03
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// ParseDate finds a date in raw, trying in order: day + italian month + year
// ("15 gen 2024", "15 gennaio 2024"), ISO ("2024-01-15") and US
// ("01/15/2024"). The first pattern found wins.
func ParseDate(raw string) (time.Time, bool) {
	if groups := italianDateRegex.FindStringSubmatch(raw); groups != nil {
		month := italianMonths[strings.ToLower(groups[2])]
		return makeDate(groups[3], strconv.Itoa(int(month)), groups[1])
	}
	if groups := isoDateRegex.FindStringSubmatch(raw); groups != nil {
		return makeDate(groups[1], groups[2], groups[3])
	}
	if groups := usDateRegex.FindStringSubmatch(raw); groups != nil {
		return makeDate(groups[3], groups[1], groups[2])
	}
	return time.Time{}, false
}

// FormatDate renders the date found in raw with the strftime format. When
// there is none the current date is used instead and ok is false.
func FormatDate(raw, format string, now time.Time) (formatted string, ok bool) {
	t, ok := ParseDate(raw)
	if !ok {
		return strftime.Format(format, now), false
	}
	return strftime.Format(format, t), true
}

var numberRegex = regexp.MustCompile(`\d[\d.,]*`)

// ParseAmount reads the first number in raw. Both italian ("1.234,56") and
// english ("1,234.56") separators are understood: when both appear the last
// one is the decimal separator, a lone separator followed by 3 digits groups
// thousands, followed by 1 or 2 digits it is the decimal separator.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.ReplaceAll(raw, "EUR", "")
	num := numberRegex.FindString(raw)
	num = strings.TrimRight(num, ".,")
	if num == "" {
		return decimal.Zero, false
	}

	lastComma := strings.LastIndex(num, ",")
	lastDot := strings.LastIndex(num, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			num = strings.ReplaceAll(num, ".", "")
			num = strings.Replace(num, ",", ".", 1)
		} else {
			num = strings.ReplaceAll(num, ",", "")
		}
	case lastComma >= 0:
		num = resolveSeparator(num, ",", lastComma)
	case lastDot >= 0:
		num = resolveSeparator(num, ".", lastDot)
	}

	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func resolveSeparator(num, sep string, last int) string {
	fraction := len(num) - last - 1
	if strings.Count(num, sep) == 1 && fraction <= 2 {
		return strings.Replace(num, sep, ".", 1)
	}
	return strings.ReplaceAll(num, sep, "")
}

// FormatAmount renders raw as an expense: negative with two fraction digits,
// "EUR 12,34" gives "-12.34". Unparseable input gives "-0.00" and ok is false.
func FormatAmount(raw string) (formatted string, ok bool) {
	d, ok := ParseAmount(raw)
	if !ok {
		return ZeroAmount, false
	}
	return "-" + d.Abs().StringFixed(2), true
}

// ComposeDescription cleans up the order description and makes sure the order
// id can be found in it.
func ComposeDescription(o order.Order) string {
	description := o.Description
	if description == "" {
		description = DescriptionFallback
	}
	description = textutil.Truncate(textutil.Collapse(description), order.MaxDescriptionLength)
	if o.OrderID != "" && !strings.Contains(description, o.OrderID) {
		description = fmt.Sprintf("%s (Order: %s)", description, o.OrderID)
	}
	return description
}

// CleanPrice strips currency markers from a displayed price, the rest is left
// as is.
func CleanPrice(price string) string {
	price = strings.NewReplacer("€", "", "EUR", "").Replace(price)
	return textutil.Collapse(price)
}
