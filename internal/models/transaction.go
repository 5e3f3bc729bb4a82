package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionSource identifies the channel a transaction arrived through.
type TransactionSource string

const (
	SourceProvider TransactionSource = "provider"
	SourceManual   TransactionSource = "manual"
	SourceCSV      TransactionSource = "csv"
	SourceOFX      TransactionSource = "ofx"
	SourceEmail    TransactionSource = "email"
	SourceReceipt  TransactionSource = "receipt"
)

// ClassifiedBy records the actor responsible for the current category
// assignment. User classification is sticky: automated passes never
// overwrite it.
type ClassifiedBy string

const (
	ClassifiedByNone     ClassifiedBy = ""
	ClassifiedByUser     ClassifiedBy = "user"
	ClassifiedByAI       ClassifiedBy = "ai"
	ClassifiedByProvider ClassifiedBy = "provider"
)

// Transaction is the central ledger entity. Amount sign convention:
// positive = money leaving the household, negative = money entering.
type Transaction struct {
	Base
	HouseholdID string  `gorm:"type:uuid;not null;index" json:"household_id"`
	AccountID   *string `gorm:"type:uuid;index" json:"account_id,omitempty"`
	CategoryID  *string `gorm:"type:uuid;index" json:"category_id,omitempty"`

	// Dedup identity. Exactly one of ExternalID (provider-assigned) or
	// ImportKey (computed for file imports) is set on non-manual rows.
	ExternalID *string `gorm:"uniqueIndex" json:"external_id,omitempty"`
	ImportKey  *string `gorm:"uniqueIndex" json:"import_key,omitempty"`

	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Date        time.Time       `gorm:"type:date;not null;index" json:"date"`
	Name        string          `gorm:"not null" json:"name"`
	MerchantName *string        `json:"merchant_name,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
	CheckNumber *string         `json:"check_number,omitempty"`

	Source       TransactionSource `gorm:"not null" json:"source"`
	ClassifiedBy ClassifiedBy      `gorm:"not null;default:''" json:"classified_by"`
	// AIConfidence is meaningful only when ClassifiedBy is "ai".
	AIConfidence *float64 `json:"ai_confidence,omitempty"`

	// Split lineage. A split parent is excluded from all aggregates; its
	// children carry the real amounts.
	IsSplit             bool    `gorm:"not null;default:false;index" json:"is_split"`
	ParentTransactionID *string `gorm:"type:uuid;index" json:"parent_transaction_id,omitempty"`

	// Transfer linkage. TransferPairID is symmetric across the pair.
	IsTransfer     bool    `gorm:"not null;default:false;index" json:"is_transfer"`
	TransferPairID *string `gorm:"type:uuid" json:"transfer_pair_id,omitempty"`

	Account  *Account  `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
