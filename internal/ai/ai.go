// Package ai wraps the external categorization and vision-extraction
// service. Services depend on the Classifier interface; tests substitute
// a scripted fake.
package ai

import (
	"context"

	"github.com/shopspring/decimal"
)

// ClassifyInput is one transaction presented to the categorizer.
type ClassifyInput struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Merchant string          `json:"merchant,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Date     string          `json:"date"`
}

// ClassifyResult maps one transaction id to a suggested category.
type ClassifyResult struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// ReceiptLine is one extracted receipt line item.
type ReceiptLine struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// ReceiptExtraction is the vision pass output for one receipt.
type ReceiptExtraction struct {
	Merchant  string        `json:"merchant"`
	Date      string        `json:"date"`
	Subtotal  float64       `json:"subtotal"`
	Tax       float64       `json:"tax"`
	Total     float64       `json:"total"`
	LineItems []ReceiptLine `json:"line_items"`
}

// Classifier is the external-model surface used by the classification
// batch pass and the receipt pipeline.
type Classifier interface {
	// ClassifyTransactions categorizes a batch of transactions against the
	// household's category names. Results referencing unknown ids or
	// categories are the caller's problem to filter.
	ClassifyTransactions(ctx context.Context, items []ClassifyInput, categories []string) ([]ClassifyResult, error)
	// ExtractReceipt runs vision extraction over one receipt image or PDF.
	ExtractReceipt(ctx context.Context, data []byte, mimeType string, categories []string) (*ReceiptExtraction, error)
}
