package ledger

import (
	"bufio"
	"html"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// sanitizer strips any markup that made it into scraped text.
var sanitizer = bluemonday.StrictPolicy()

// markupPattern matches html elements that show up in leaked page markup.
// Angle brackets around anything else are plain text, as in "<USB-C>".
var markupPattern = regexp.MustCompile(`(?i)</?(a|b|i|u|em|strong|span|div|p|br|li|ul|ol|img|script|style|font|small|sup|sub|h[1-6])(\s[^>]*)?/?>`)

// SanitizeCell cleans a free text cell. Cells holding html elements have
// their markup removed and entities decoded, plain text is kept as is. A
// leading formula character is escaped so spreadsheet applications do not
// evaluate it.
func SanitizeCell(s string) string {
	if markupPattern.MatchString(s) {
		s = html.UnescapeString(sanitizer.Sanitize(s))
	}
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		s = "'" + s
	}
	return s
}

// writeQuoted writes records with every field quoted, quotes inside fields
// are doubled.
func writeQuoted(w io.Writer, header []string, records [][]string) error {
	buf := bufio.NewWriter(w)
	writeRecord := func(record []string) {
		for i, field := range record {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
			buf.WriteByte('"')
		}
		buf.WriteByte('\n')
	}

	writeRecord(header)
	for _, record := range records {
		writeRecord(record)
	}
	return buf.Flush()
}

func writeFile(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = writeQuoted(f, header, records)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteOrders writes rows as the orders artifact at path.
func WriteOrders(path string, rows []OrderRow) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = r.Record()
	}
	return writeFile(path, OrdersHeader, records)
}

// WriteProducts writes rows as the products artifact at path.
func WriteProducts(path string, rows []ProductRow) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = r.Record()
	}
	return writeFile(path, ProductsHeader, records)
}
