// Package ingest normalizes raw import channels (delimited files, OFX/QFX
// exports) into canonical transaction candidates. Parsers never abort a
// whole batch on one bad row; malformed rows are skipped and counted.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Candidate is a normalized transaction candidate produced by a channel
// parser. Amount follows the ledger convention: positive = money leaving
// the household.
type Candidate struct {
	Date         time.Time
	Name         string
	MerchantName string
	Amount       decimal.Decimal
	CheckNumber  string
	Memo         string

	// ExternalID is the source-assigned transaction id, when the channel
	// provides one (OFX FITID). Empty for delimited files.
	ExternalID string
}

// parseAmount strips currency symbols and thousands separators before
// parsing. Parentheses denote negative amounts in some bank exports.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// parseDate accepts MM/DD/YYYY or YYYY-MM-DD and normalizes to a calendar
// date (midnight UTC, no time component).
func parseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	layouts := []string{"2006-01-02", "01/02/2006", "1/2/2006"}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
