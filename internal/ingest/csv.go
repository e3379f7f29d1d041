// Package ingest parses transaction files into the domain model.
// Imported rows carry the file ID they came from; all later analysis
// is scoped to that file.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/shopspring/decimal"
)

// Required CSV columns. Header matching is case-insensitive and order
// does not matter; extra columns are ignored.
const (
	columnCategory = "category"
	columnAmount   = "amount"
	columnDate     = "transaction_date_time"
	columnMerchant = "merchant"
)

// CSVParser reads categorized transaction exports.
type CSVParser struct{}

// NewCSVParser creates a new CSV parser.
func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// ParseFile reads a CSV export and returns its transactions tagged
// with the given file ID. Dates must be ISO-8601; amounts are parsed
// as exact decimals to avoid float artifacts from the file.
func (p *CSVParser) ParseFile(fileID string, reader io.Reader) ([]model.Transaction, error) {
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{columnCategory, columnAmount, columnDate, columnMerchant} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	var transactions []model.Transaction
	row := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", row+1, err)
		}
		row++

		txn, err := p.parseRow(fileID, row, record, columns)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}

	return transactions, nil
}

func (p *CSVParser) parseRow(fileID string, row int, record []string, columns map[string]int) (model.Transaction, error) {
	field := func(name string) string {
		idx := columns[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := parseDate(field(columnDate))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("row %d: %w", row, err)
	}

	amount, err := decimal.NewFromString(field(columnAmount))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("row %d: invalid amount %q: %w", row, field(columnAmount), err)
	}

	txn := model.Transaction{
		ID:       fmt.Sprintf("%s-%06d", fileID, row),
		FileID:   fileID,
		Date:     date,
		Category: field(columnCategory),
		Merchant: field(columnMerchant),
		Amount:   amount.InexactFloat64(),
	}
	txn.Hash = txn.GenerateHash()
	return txn, nil
}

// parseDate accepts ISO-8601 timestamps with or without zone, and
// plain dates.
func parseDate(value string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid transaction date %q", value)
}
