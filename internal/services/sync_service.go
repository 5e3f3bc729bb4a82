package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/logger"
	"hearth/internal/models"
	"hearth/internal/provider"
)

// syncService drives incremental provider sync. The cursor on each
// connection is the resume point: it is persisted after every applied
// page, so an interrupted sync resumes without re-requesting pages the
// ledger already absorbed.
type syncService struct {
	db          *gorm.DB
	client      provider.Client
	households  HouseholdServicer
	categoryMap provider.CategoryMap
	pageSize    int
}

// NewSyncService creates a new SyncServicer. client may be nil when no
// provider is configured; sync operations then fail with
// ErrProviderUnavailable.
func NewSyncService(db *gorm.DB, client provider.Client, households HouseholdServicer, categoryMap provider.CategoryMap, pageSize int) SyncServicer {
	if pageSize <= 0 {
		pageSize = 500
	}
	return &syncService{
		db:          db,
		client:      client,
		households:  households,
		categoryMap: categoryMap,
		pageSize:    pageSize,
	}
}

// CreateConnection registers a provider item for the household. Only
// owners may manage connections.
func (s *syncService) CreateConnection(userID, householdID, accessToken, institutionName string) (*models.ProviderItem, error) {
	if _, err := s.households.RequireOwner(userID, householdID); err != nil {
		return nil, err
	}
	if accessToken == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "access token is required")
	}

	item := &models.ProviderItem{
		HouseholdID:     householdID,
		AccessToken:     accessToken,
		InstitutionName: institutionName,
		Status:          models.SyncStatusIdle,
	}
	if err := s.db.Create(item).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return item, nil
}

// GetHouseholdConnections lists the household's provider items.
func (s *syncService) GetHouseholdConnections(userID, householdID string) ([]models.ProviderItem, error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	var items []models.ProviderItem
	if err := s.db.Where("household_id = ?", householdID).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return items, nil
}

// DeleteConnection removes a provider item. Transactions already synced
// stay in the ledger; only the sync channel goes away.
func (s *syncService) DeleteConnection(userID, connectionID string) error {
	item, err := s.getConnection(connectionID)
	if err != nil {
		return err
	}
	if _, err := s.households.RequireOwner(userID, item.HouseholdID); err != nil {
		return err
	}
	if err := s.db.Delete(item).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *syncService) getConnection(connectionID string) (*models.ProviderItem, error) {
	var item models.ProviderItem
	if err := s.db.Where("id = ?", connectionID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrConnectionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &item, nil
}

// Sync pulls all pending pages of changes for one connection and applies
// them to the ledger. Page-at-a-time: each page is applied and the new
// cursor persisted before the next request, so a crash mid-run loses at
// most the in-flight page.
func (s *syncService) Sync(ctx context.Context, userID, connectionID string) (*SyncSummary, error) {
	if s.client == nil {
		return nil, apperrors.ErrProviderUnavailable
	}

	item, err := s.getConnection(connectionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.households.RequireMember(userID, item.HouseholdID); err != nil {
		return nil, err
	}

	// Claim the connection. The guarded update makes concurrent syncs of
	// the same connection mutually exclusive.
	res := s.db.Model(&models.ProviderItem{}).
		Where("id = ? AND status <> ?", item.ID, models.SyncStatusPaging).
		Update("status", models.SyncStatusPaging)
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrConnectionSyncing
	}

	summary := &SyncSummary{}
	cursor := ""
	if item.Cursor != nil {
		cursor = *item.Cursor
	}

	for {
		page, err := s.client.SyncPage(ctx, item.AccessToken, cursor, s.pageSize)
		if err != nil {
			s.markErrored(item.ID, err)
			return nil, apperrors.Wrap(apperrors.ErrProviderUnavailable, err)
		}

		if err := s.applyPage(item, page, summary); err != nil {
			s.markErrored(item.ID, err)
			return nil, err
		}

		// Persist the cursor only after the page landed.
		cursor = page.NextCursor
		updates := map[string]interface{}{"cursor": cursor, "last_error": nil}
		if !page.HasMore {
			updates["status"] = models.SyncStatusIdle
			updates["last_synced_at"] = time.Now().UTC()
		}
		if err := s.db.Model(&models.ProviderItem{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
			s.markErrored(item.ID, err)
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if !page.HasMore {
			break
		}
	}

	s.refreshBalances(ctx, item)
	return summary, nil
}

// markErrored records the failure without advancing the cursor; the next
// run resumes from the last applied page.
func (s *syncService) markErrored(itemID string, cause error) {
	msg := cause.Error()
	err := s.db.Model(&models.ProviderItem{}).Where("id = ?", itemID).Updates(map[string]interface{}{
		"status":     models.SyncStatusErrored,
		"last_error": msg,
	}).Error
	if err != nil {
		logger.Get().Errorw("failed to record sync error", "connection_id", itemID, "error", err)
	}
}

// applyPage upserts added and modified items and hard-deletes removed
// ones inside a single transaction, so a page is applied fully or not
// at all.
func (s *syncService) applyPage(item *models.ProviderItem, page *provider.SyncPage, summary *SyncSummary) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, pi := range append(append([]provider.Item{}, page.Added...), page.Modified...) {
			added, err := s.upsertProviderItem(tx, item, pi)
			if err != nil {
				return err
			}
			if added {
				summary.Added++
			} else {
				summary.Modified++
			}
		}
		for _, removed := range page.Removed {
			// The provider says the row no longer exists; a soft delete
			// would leave a dangling unique external id behind.
			res := tx.Unscoped().
				Where("household_id = ? AND external_id = ?", item.HouseholdID, removed.TransactionID).
				Delete(&models.Transaction{})
			if res.Error != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
			}
			summary.Removed += int(res.RowsAffected)
		}
		return nil
	})
}

// upsertProviderItem reconciles one provider transaction into the ledger.
// Returns true when a new row was inserted. User-chosen categories are
// sticky: provider labels never overwrite them.
func (s *syncService) upsertProviderItem(tx *gorm.DB, item *models.ProviderItem, pi provider.Item) (bool, error) {
	date, err := time.ParseInLocation("2006-01-02", pi.Date, time.UTC)
	if err != nil {
		return false, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("provider sent unparseable date %q", pi.Date))
	}

	accountID := s.resolveAccount(tx, item, pi.AccountID)
	categoryID, classifiedBy := s.mapCategory(tx, item.HouseholdID, pi.CategoryLabel)

	var existing models.Transaction
	err = tx.Where("household_id = ? AND external_id = ?", item.HouseholdID, pi.TransactionID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row := models.Transaction{
			HouseholdID:  item.HouseholdID,
			AccountID:    accountID,
			CategoryID:   categoryID,
			ExternalID:   &pi.TransactionID,
			Amount:       pi.Amount,
			Date:         date,
			Name:         pi.Name,
			MerchantName: pi.MerchantName,
			Source:       models.SourceProvider,
			ClassifiedBy: classifiedBy,
		}
		if err := tx.Create(&row).Error; err != nil {
			return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return true, nil
	}
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := map[string]interface{}{
		"amount":        pi.Amount,
		"date":          date,
		"name":          pi.Name,
		"merchant_name": pi.MerchantName,
	}
	if existing.ClassifiedBy != models.ClassifiedByUser && categoryID != nil {
		updates["category_id"] = categoryID
		updates["classified_by"] = classifiedBy
		updates["ai_confidence"] = nil
	}
	if err := tx.Model(&existing).Updates(updates).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return false, nil
}

// resolveAccount maps the provider's account id to a local account,
// creating a placeholder on first sight so transactions are never
// orphaned.
func (s *syncService) resolveAccount(tx *gorm.DB, item *models.ProviderItem, providerAccountID string) *string {
	if providerAccountID == "" {
		return nil
	}
	var account models.Account
	err := tx.Where("household_id = ? AND provider_account_id = ?", item.HouseholdID, providerAccountID).First(&account).Error
	if err == nil {
		return &account.ID
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Get().Warnw("account lookup failed", "provider_account_id", providerAccountID, "error", err)
		return nil
	}

	account = models.Account{
		HouseholdID:       item.HouseholdID,
		Name:              item.InstitutionName,
		Type:              models.AccountTypeOther,
		Institution:       item.InstitutionName,
		Currency:          "USD",
		ProviderItemID:    &item.ID,
		ProviderAccountID: &providerAccountID,
	}
	if err := tx.Create(&account).Error; err != nil {
		logger.Get().Warnw("placeholder account creation failed", "provider_account_id", providerAccountID, "error", err)
		return nil
	}
	return &account.ID
}

// mapCategory translates the provider's category label into a household
// category through the configured keyed map. An unmapped label leaves
// the transaction uncategorized.
func (s *syncService) mapCategory(tx *gorm.DB, householdID, label string) (*string, models.ClassifiedBy) {
	if label == "" || s.categoryMap == nil {
		return nil, models.ClassifiedByNone
	}
	name, ok := s.categoryMap.Lookup(label)
	if !ok {
		return nil, models.ClassifiedByNone
	}
	var category models.Category
	err := tx.Where("household_id = ? AND name = ?", householdID, name).First(&category).Error
	if err != nil {
		return nil, models.ClassifiedByNone
	}
	return &category.ID, models.ClassifiedByProvider
}

// refreshBalances updates account balances after a successful sync.
// Best-effort: the transactions already landed, a balance failure only
// logs.
func (s *syncService) refreshBalances(ctx context.Context, item *models.ProviderItem) {
	balances, err := s.client.GetBalances(ctx, item.AccessToken)
	if err != nil {
		logger.Get().Warnw("balance refresh failed", "connection_id", item.ID, "error", err)
		return
	}
	for _, b := range balances {
		err := s.db.Model(&models.Account{}).
			Where("household_id = ? AND provider_account_id = ?", item.HouseholdID, b.AccountID).
			Updates(map[string]interface{}{
				"balance_current":   b.Current,
				"balance_available": b.Available,
			}).Error
		if err != nil {
			logger.Get().Warnw("balance update failed", "provider_account_id", b.AccountID, "error", err)
		}
	}
}
