package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ScanStatus is the receipt extraction state machine. Completed and
// failed are terminal; callers poll until one of them is observed.
type ScanStatus string

const (
	ScanStatusPending    ScanStatus = "pending"
	ScanStatusProcessing ScanStatus = "processing"
	ScanStatusCompleted  ScanStatus = "completed"
	ScanStatusFailed     ScanStatus = "failed"
)

// ReceiptSummary is the receipt-level totals extracted by the vision pass.
type ReceiptSummary struct {
	Merchant string  `json:"merchant,omitempty"`
	Date     string  `json:"date,omitempty"`
	Subtotal float64 `json:"subtotal,omitempty"`
	Tax      float64 `json:"tax,omitempty"`
	Total    float64 `json:"total,omitempty"`
}

// Value implements driver.Valuer, storing the summary as JSON.
func (s ReceiptSummary) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *ReceiptSummary) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// ReceiptLineItem is one extracted line with an AI-suggested category.
type ReceiptLineItem struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ReceiptLineItems stores the extracted lines as a JSON array column.
type ReceiptLineItems []ReceiptLineItem

// Value implements driver.Valuer.
func (l ReceiptLineItems) Value() (driver.Value, error) {
	if l == nil {
		l = ReceiptLineItems{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *ReceiptLineItems) Scan(value interface{}) error {
	return scanJSON(value, l)
}

func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
}

// ReceiptScan tracks one uploaded receipt through asynchronous vision
// extraction. Line items feed the split ledger as candidate split
// children; a scan never writes to the ledger directly.
type ReceiptScan struct {
	Base
	HouseholdID string           `gorm:"type:uuid;not null;index" json:"household_id"`
	Status      ScanStatus       `gorm:"not null;default:'pending'" json:"status"`
	FileName    string           `json:"file_name"`
	MIMEType    string           `json:"mime_type"`
	Summary     ReceiptSummary   `gorm:"type:jsonb" json:"summary"`
	LineItems   ReceiptLineItems `gorm:"type:jsonb" json:"line_items"`
	Error       *string          `json:"error,omitempty"`
}
