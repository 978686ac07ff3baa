package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/ncruces/go-strftime"
)

var ErrInvalidArtifact = errors.New("invalid orders artifact")

var requiredColumns = []string{"date", "amount", "description"}

// ValidateOrdersCSV checks the orders artifact at path can be imported: the
// required columns exist, there is at least one row, every date parses with
// dateFormat and every amount is a number. The first failed check is returned
// wrapped in ErrInvalidArtifact.
func ValidateOrdersCSV(path, dateFormat string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidArtifact, err.Error())
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: no header", ErrInvalidArtifact)
	}

	header := records[0]
	for _, col := range requiredColumns {
		if !slices.Contains(header, col) {
			return fmt.Errorf("%w: missing required column %q", ErrInvalidArtifact, col)
		}
	}
	rows := records[1:]
	if len(rows) == 0 {
		return fmt.Errorf("%w: no rows", ErrInvalidArtifact)
	}

	dateCol := slices.Index(header, "date")
	amountCol := slices.Index(header, "amount")
	for i, row := range rows {
		line := i + 2
		_, err := strftime.Parse(dateFormat, row[dateCol])
		if err != nil {
			return fmt.Errorf("%w: line %d: date %q does not match %q", ErrInvalidArtifact, line, row[dateCol], dateFormat)
		}
		_, err = strconv.ParseFloat(row[amountCol], 64)
		if err != nil {
			return fmt.Errorf("%w: line %d: amount %q is not a number", ErrInvalidArtifact, line, row[amountCol])
		}
	}
	return nil
}
