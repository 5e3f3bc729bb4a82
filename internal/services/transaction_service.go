package services

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
	"hearth/internal/pagination"
)

// transactionService handles ledger CRUD, filtering and aggregates.
type transactionService struct {
	db         *gorm.DB
	households HouseholdServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, households HouseholdServicer) TransactionServicer {
	return &transactionService{db: db, households: households}
}

// CreateTransaction creates a manual ledger entry. A category picked at
// creation time is a user decision, so provenance is set to user.
func (s *transactionService) CreateTransaction(userID, householdID string, accountID, categoryID *string, amount decimal.Decimal, date time.Time, name string, merchantName, notes *string) (*models.Transaction, error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction name is required")
	}
	if amount.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be non-zero")
	}

	classifiedBy := models.ClassifiedByNone
	if categoryID != nil {
		classifiedBy = models.ClassifiedByUser
	}

	transaction := &models.Transaction{
		HouseholdID:  householdID,
		AccountID:    accountID,
		CategoryID:   categoryID,
		Amount:       amount,
		Date:         truncateToDate(date),
		Name:         name,
		MerchantName: merchantName,
		Notes:        notes,
		Source:       models.SourceManual,
		ClassifiedBy: classifiedBy,
	}
	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// GetTransactionByID retrieves a transaction the user may access.
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Category").Preload("Account").Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if _, err := s.households.RequireMember(userID, transaction.HouseholdID); err != nil {
		return nil, apperrors.ErrTransactionNotFound
	}
	return &transaction, nil
}

// GetHouseholdTransactions returns a paginated, filtered list. Split
// parents are excluded; their children carry the real amounts.
func (s *transactionService) GetHouseholdTransactions(userID, householdID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.Transaction{}).
		Where("household_id = ? AND is_split = ?", householdID, false)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	err := base.Preload("Category").Preload("Account").
		Scopes(pagination.Paginate(page)).
		Order("date DESC, created_at DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(COALESCE(merchant_name, '')) LIKE LOWER(?)", pattern, pattern)
	}
	if f.AccountID != nil {
		q = q.Where("account_id = ?", *f.AccountID)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.StartDate != nil {
		q = q.Where("date >= ?", truncateToDate(*f.StartDate))
	}
	if f.EndDate != nil {
		q = q.Where("date <= ?", truncateToDate(*f.EndDate))
	}
	return q
}

// GetRecentTransactions returns the newest non-split rows.
func (s *transactionService) GetRecentTransactions(userID, householdID string, limit int) ([]models.Transaction, error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	var transactions []models.Transaction
	err := s.db.Preload("Category").Preload("Account").
		Where("household_id = ? AND is_split = ?", householdID, false).
		Order("date DESC, created_at DESC").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// UpdateTransaction updates mutable fields. categoryID is tri-state: nil
// leaves the category untouched, a pointer to nil clears it, a pointer to
// a value assigns it. Any category change through this path is a manual
// edit and takes user provenance.
func (s *transactionService) UpdateTransaction(userID, transactionID string, name, notes *string, categoryID **string, amount *decimal.Decimal, date *time.Time) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != nil && *name != "" {
		updates["name"] = *name
	}
	if notes != nil {
		updates["notes"] = *notes
	}
	if amount != nil && !amount.IsZero() {
		updates["amount"] = *amount
	}
	if date != nil {
		updates["date"] = truncateToDate(*date)
	}
	if categoryID != nil {
		if *categoryID == nil {
			updates["category_id"] = nil
			updates["classified_by"] = models.ClassifiedByNone
		} else {
			updates["category_id"] = **categoryID
			updates["classified_by"] = models.ClassifiedByUser
		}
		// Confidence belongs to ai classification only.
		updates["ai_confidence"] = nil
	}

	if len(updates) > 0 {
		if err := s.db.Model(&models.Transaction{}).Where("id = ?", transaction.ID).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return s.GetTransactionByID(userID, transactionID)
}

// DeleteTransaction removes a transaction and any split children it has.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_transaction_id = ?", transaction.ID).Delete(&models.Transaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetCashFlow sums money in and out over [start, end]. Split parents and
// transfer legs are excluded so nothing is double-counted.
func (s *transactionService) GetCashFlow(userID, householdID string, start, end time.Time) (*CashFlow, error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var rows []models.Transaction
	err := s.db.Select("amount").
		Where("household_id = ? AND is_split = ? AND is_transfer = ?", householdID, false, false).
		Where("date >= ? AND date <= ?", truncateToDate(start), truncateToDate(end)).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	flow := &CashFlow{Income: decimal.Zero, Expenses: decimal.Zero}
	for _, row := range rows {
		if row.Amount.IsNegative() {
			flow.Income = flow.Income.Add(row.Amount.Abs())
		} else {
			flow.Expenses = flow.Expenses.Add(row.Amount)
		}
	}
	flow.Net = flow.Income.Sub(flow.Expenses)
	return flow, nil
}

// GetSpendingByCategory totals expenses per category over [start, end],
// with the same split/transfer exclusions as cash flow.
func (s *transactionService) GetSpendingByCategory(userID, householdID string, start, end time.Time) ([]CategorySpending, error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var rows []models.Transaction
	err := s.db.Select("amount, category_id").
		Where("household_id = ? AND is_split = ? AND is_transfer = ?", householdID, false, false).
		Where("amount > 0").
		Where("date >= ? AND date <= ?", truncateToDate(start), truncateToDate(end)).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	totals := map[string]decimal.Decimal{}
	for _, row := range rows {
		key := ""
		if row.CategoryID != nil {
			key = *row.CategoryID
		}
		totals[key] = totals[key].Add(row.Amount)
	}

	var categories []models.Category
	if err := s.db.Where("household_id = ?", householdID).Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	nameByID := make(map[string]string, len(categories))
	for _, c := range categories {
		nameByID[c.ID] = c.Name
	}

	var result []CategorySpending
	for key, total := range totals {
		entry := CategorySpending{Total: total, CategoryName: "Uncategorized"}
		if key != "" {
			id := key
			entry.CategoryID = &id
			if name, ok := nameByID[key]; ok {
				entry.CategoryName = name
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

// BulkRecategorize applies one category to many transactions as a
// concurrent best-effort fan-out. Each per-item update re-checks
// household scope; the result counts are the only success signal.
func (s *transactionService) BulkRecategorize(userID, householdID string, transactionIDs []string, categoryID *string) (*BulkResult, error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"ai_confidence": nil,
	}
	if categoryID == nil {
		updates["category_id"] = nil
		updates["classified_by"] = models.ClassifiedByNone
	} else {
		updates["category_id"] = *categoryID
		updates["classified_by"] = models.ClassifiedByUser
	}

	return s.fanOut(transactionIDs, func(id string) error {
		res := s.db.Model(&models.Transaction{}).
			Where("id = ? AND household_id = ?", id, householdID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrTransactionNotFound
		}
		return nil
	})
}

// BulkDelete removes many transactions as a concurrent best-effort fan-out.
func (s *transactionService) BulkDelete(userID, householdID string, transactionIDs []string) (*BulkResult, error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	return s.fanOut(transactionIDs, func(id string) error {
		res := s.db.Where("id = ? AND household_id = ?", id, householdID).Delete(&models.Transaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrTransactionNotFound
		}
		return nil
	})
}

// fanOut runs op per item concurrently with no cross-item atomicity.
func (s *transactionService) fanOut(ids []string, op func(id string) error) (*BulkResult, error) {
	var succeeded, failed atomic.Int64
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := op(id); err != nil {
				failed.Add(1)
				return
			}
			succeeded.Add(1)
		}(id)
	}
	wg.Wait()

	return &BulkResult{
		Requested: len(ids),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}, nil
}

// truncateToDate drops the time component; the ledger stores calendar
// dates only.
func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
