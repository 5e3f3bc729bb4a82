package services

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"hearth/internal/ingest"
	"hearth/internal/models"
	"hearth/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, name string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
}

// HouseholdServicer defines the contract for household and membership logic.
// RequireMember / RequireOwner are the authorization gate every other
// service calls before touching household data or external services.
type HouseholdServicer interface {
	CreateHousehold(userID, name string) (*models.Household, error)
	GetUserHouseholds(userID string) ([]models.Household, error)
	GetHouseholdByID(userID, householdID string) (*models.Household, error)
	UpdateHousehold(userID, householdID string, name *string, autoClassify *bool) (*models.Household, error)
	AddMember(userID, householdID, email string, role models.MemberRole) (*models.HouseholdMember, error)
	GetMembers(userID, householdID string) ([]models.HouseholdMember, error)
	RequireMember(userID, householdID string) (*models.HouseholdMember, error)
	RequireOwner(userID, householdID string) (*models.HouseholdMember, error)
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(userID, householdID, name string, accountType models.AccountType, institution, currency string) (*models.Account, error)
	GetHouseholdAccounts(userID, householdID string) ([]models.Account, error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	UpdateAccount(userID, accountID string, name *string, accountType *models.AccountType) (*models.Account, error)
	DeleteAccount(userID, accountID string) error
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, householdID, name, color, icon string) (*models.Category, error)
	GetHouseholdCategories(userID, householdID string) ([]models.Category, error)
	UpdateCategory(userID, categoryID string, name, color, icon *string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	Search     string
	AccountID  *string
	CategoryID *string
	StartDate  *time.Time
	EndDate    *time.Time
}

// CashFlow summarizes money in and out over a period. Split parents and
// transfer-linked legs are excluded on both sides.
type CashFlow struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// CategorySpending is one category's spending total over a period.
type CategorySpending struct {
	CategoryID   *string         `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Total        decimal.Decimal `json:"total"`
}

// BulkResult reports the outcome of a best-effort bulk operation. A
// partial failure leaves some rows changed and some not; callers must
// read the counts rather than assume all-or-nothing.
type BulkResult struct {
	Requested int `json:"requested"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// TransactionServicer defines the contract for ledger CRUD and aggregates.
type TransactionServicer interface {
	CreateTransaction(userID, householdID string, accountID, categoryID *string, amount decimal.Decimal, date time.Time, name string, merchantName, notes *string) (*models.Transaction, error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	GetHouseholdTransactions(userID, householdID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetRecentTransactions(userID, householdID string, limit int) ([]models.Transaction, error)
	UpdateTransaction(userID, transactionID string, name, notes *string, categoryID **string, amount *decimal.Decimal, date *time.Time) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	GetCashFlow(userID, householdID string, start, end time.Time) (*CashFlow, error)
	GetSpendingByCategory(userID, householdID string, start, end time.Time) ([]CategorySpending, error)
	BulkRecategorize(userID, householdID string, transactionIDs []string, categoryID *string) (*BulkResult, error)
	BulkDelete(userID, householdID string, transactionIDs []string) (*BulkResult, error)
}

// ImportSummary is the structured outcome of an ingestion run. Partial
// failure is reported through the counts, never through an error.
type ImportSummary struct {
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// CSVPreview is the header row plus a suggested column mapping for an
// uploaded delimited file.
type CSVPreview struct {
	Headers   []string             `json:"headers"`
	Suggested ingest.ColumnMapping `json:"suggested"`
}

// ImportServicer defines the contract for the dedup & upsert layer and
// the file import channels built on it.
type ImportServicer interface {
	PreviewCSV(r io.Reader) (*CSVPreview, error)
	ImportCSV(ctx context.Context, userID, householdID string, accountID *string, mapping ingest.ColumnMapping, r io.Reader) (*ImportSummary, error)
	ImportOFX(ctx context.Context, userID, householdID string, accountID *string, text string) (*ImportSummary, error)
}

// SyncSummary is the structured outcome of one provider sync run.
type SyncSummary struct {
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Removed  int `json:"removed"`
}

// SyncServicer drives incremental sync against the aggregation provider.
type SyncServicer interface {
	CreateConnection(userID, householdID, accessToken, institutionName string) (*models.ProviderItem, error)
	GetHouseholdConnections(userID, householdID string) ([]models.ProviderItem, error)
	DeleteConnection(userID, connectionID string) error
	Sync(ctx context.Context, userID, connectionID string) (*SyncSummary, error)
}

// ClassifySummary is the structured outcome of one automated
// classification pass.
type ClassifySummary struct {
	Classified int `json:"classified"`
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`
}

// ClassifyServicer runs the automated categorization pass.
type ClassifyServicer interface {
	ClassifyHousehold(ctx context.Context, userID, householdID string) (*ClassifySummary, error)
}

// SplitLine is one child line of a split request. Amount is the positive
// magnitude; the service signs it to match the parent's direction.
type SplitLine struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	CategoryID *string         `json:"category_id,omitempty"`
}

// SplitServicer decomposes a parent transaction into balanced children.
type SplitServicer interface {
	Split(userID, parentID string, lines []SplitLine) ([]models.Transaction, error)
	SplitFromReceipt(userID, parentID, scanID string) ([]models.Transaction, error)
}

// TransferMatch is one candidate opposite leg for a transfer pair.
type TransferMatch struct {
	Transaction models.Transaction `json:"transaction"`
	AccountName string             `json:"account_name"`
}

// TransferServicer finds and links internal-movement pairs.
type TransferServicer interface {
	FindMatches(userID, transactionID string) ([]TransferMatch, error)
	Link(userID, transactionIDA, transactionIDB string) error
	Unlink(userID, transactionID string) error
}

// ReceiptServicer tracks uploaded receipts through async vision extraction.
type ReceiptServicer interface {
	Upload(userID, householdID, fileName, mimeType string, data []byte) (*models.ReceiptScan, error)
	GetScan(userID, scanID string) (*models.ReceiptScan, error)
	GetHouseholdScans(userID, householdID string) ([]models.ReceiptScan, error)
}

// AuditServicer records mutating actions. Logging is best-effort and
// never fails the request.
type AuditServicer interface {
	Log(userID, action, entityType, entityID, clientIP string, details map[string]interface{})
}
