package models

import "github.com/shopspring/decimal"

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
	AccountTypeCredit   AccountType = "credit"
	AccountTypeCash     AccountType = "cash"
	AccountTypeOther    AccountType = "other"
)

// Account represents a financial account belonging to a household.
// Provider-linked accounts carry the provider's account id so synced
// transactions and balance refreshes can be routed to them.
type Account struct {
	Base
	HouseholdID string      `gorm:"type:uuid;not null;index" json:"household_id"`
	Name        string      `gorm:"not null" json:"name"`
	Type        AccountType `gorm:"not null;default:'checking'" json:"type"`
	Institution string      `json:"institution,omitempty"`
	Mask        string      `json:"mask,omitempty"`
	Currency    string      `gorm:"not null;default:'USD'" json:"currency"`

	// Provider linkage
	ProviderItemID    *string `gorm:"type:uuid;index" json:"provider_item_id,omitempty"`
	ProviderAccountID *string `gorm:"uniqueIndex" json:"provider_account_id,omitempty"`

	BalanceCurrent   decimal.Decimal  `gorm:"type:numeric(14,2);not null;default:0" json:"balance_current"`
	BalanceAvailable *decimal.Decimal `gorm:"type:numeric(14,2)" json:"balance_available,omitempty"`

	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
}
