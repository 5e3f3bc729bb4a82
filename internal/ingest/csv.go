package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ColumnMapping maps candidate fields to CSV header names. The caller may
// supply its own mapping or start from SuggestMapping and override.
type ColumnMapping struct {
	Date   string `json:"date"`
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// Complete reports whether every required column is mapped.
func (m ColumnMapping) Complete() bool {
	return m.Date != "" && m.Name != "" && m.Amount != ""
}

// headerAliases lists known header spellings per field, most specific
// first. Covers the common bank export layouts (Chase, BofA, Amex and
// generic exports).
var headerAliases = map[string][]string{
	"date":   {"posting date", "transaction date", "date"},
	"name":   {"description", "payee", "merchant", "name"},
	"amount": {"amount", "debit", "value"},
}

// SuggestMapping matches known header aliases case-insensitively and
// returns a best-effort mapping. Unmatched fields are left empty for the
// caller to fill in.
func SuggestMapping(headers []string) ColumnMapping {
	find := func(field string) string {
		for _, alias := range headerAliases[field] {
			for _, h := range headers {
				if strings.EqualFold(strings.TrimSpace(h), alias) {
					return h
				}
			}
		}
		return ""
	}
	return ColumnMapping{
		Date:   find("date"),
		Name:   find("name"),
		Amount: find("amount"),
	}
}

// ReadHeaders reads only the header row of a delimited file, for mapping
// previews.
func ReadHeaders(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}
	return headers, nil
}

// CSVResult carries the parsed candidates plus the per-row skip count.
type CSVResult struct {
	Candidates []Candidate
	Headers    []string
	Skipped    int
}

// ParseCSV reads a delimited file with a header row and normalizes each
// row through the given column mapping. Rows missing a mapped field or
// with a non-numeric amount are skipped and counted, never fatal.
func ParseCSV(r io.Reader, mapping ColumnMapping) (*CSVResult, error) {
	if !mapping.Complete() {
		return nil, fmt.Errorf("column mapping must name date, name and amount columns")
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}

	index := func(column string) int {
		for i, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(column)) {
				return i
			}
		}
		return -1
	}
	dateIdx, nameIdx, amountIdx := index(mapping.Date), index(mapping.Name), index(mapping.Amount)
	if dateIdx < 0 || nameIdx < 0 || amountIdx < 0 {
		return nil, fmt.Errorf("mapped columns not present in header row")
	}

	result := &CSVResult{Headers: headers}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed row, not a malformed file.
			result.Skipped++
			continue
		}
		if dateIdx >= len(record) || nameIdx >= len(record) || amountIdx >= len(record) {
			result.Skipped++
			continue
		}

		name := strings.TrimSpace(record[nameIdx])
		if name == "" || strings.TrimSpace(record[dateIdx]) == "" || strings.TrimSpace(record[amountIdx]) == "" {
			result.Skipped++
			continue
		}

		date, err := parseDate(record[dateIdx])
		if err != nil {
			result.Skipped++
			continue
		}
		amount, err := parseAmount(record[amountIdx])
		if err != nil {
			result.Skipped++
			continue
		}

		result.Candidates = append(result.Candidates, Candidate{
			Date:   date,
			Name:   name,
			Amount: amount,
		})
	}
	return result, nil
}
