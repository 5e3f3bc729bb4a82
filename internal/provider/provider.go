// Package provider implements the client side of the aggregation
// provider's incremental-sync protocol. The provider is a black box:
// this package only knows the wire contract.
package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Item is one transaction in a sync page. The provider's sign convention
// matches the ledger's (positive = money out); this is part of the wire
// contract and is covered by the sync tests.
type Item struct {
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	Name          string          `json:"name"`
	MerchantName  *string         `json:"merchant_name,omitempty"`
	CategoryLabel string          `json:"category_label,omitempty"`
}

// RemovedItem identifies a transaction the provider asserts no longer exists.
type RemovedItem struct {
	TransactionID string `json:"transaction_id"`
}

// SyncPage is one page of incremental changes. HasMore signals that the
// caller should request another page with NextCursor.
type SyncPage struct {
	Added      []Item        `json:"added"`
	Modified   []Item        `json:"modified"`
	Removed    []RemovedItem `json:"removed"`
	NextCursor string        `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}

// AccountBalance is one account's refreshed balance.
type AccountBalance struct {
	AccountID        string           `json:"account_id"`
	Current          decimal.Decimal  `json:"current"`
	Available        *decimal.Decimal `json:"available,omitempty"`
}

// Client is the sync protocol surface the sync service depends on.
// Implemented by HTTPClient; tests substitute a scripted fake.
type Client interface {
	// SyncPage requests one page of changes. An empty cursor means a full
	// historical sync from the beginning.
	SyncPage(ctx context.Context, accessToken, cursor string, pageSize int) (*SyncPage, error)
	// GetBalances fetches current balances for every account on the item.
	GetBalances(ctx context.Context, accessToken string) ([]AccountBalance, error)
}

// Options configures the HTTP client.
type Options struct {
	BaseURL  string
	ClientID string
	Secret   string
	Timeout  time.Duration
}
