package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"hearth/internal/models"
	"hearth/internal/provider"
	"hearth/internal/testutil"
)

func providerItem(id, accountID, amount, date, name, label string) provider.Item {
	return provider.Item{
		TransactionID: id,
		AccountID:     accountID,
		Amount:        decimal.RequireFromString(amount),
		Date:          date,
		Name:          name,
		CategoryLabel: label,
	}
}

func defaultTestMap(t *testing.T) provider.CategoryMap {
	t.Helper()
	m, err := provider.LoadCategoryMap("")
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestSync(t *testing.T) {
	t.Run("pages_applied_and_cursor_advanced", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)
		conn := testutil.CreateTestConnection(t, db, household.ID)

		client := &fakeProviderClient{pages: map[string]*provider.SyncPage{
			"": {
				Added:      []provider.Item{providerItem("t1", "acc-1", "12.50", "2024-03-01", "COFFEE", "FOOD_AND_DRINK")},
				NextCursor: "c1",
				HasMore:    true,
			},
			"c1": {
				Added:      []provider.Item{providerItem("t2", "acc-1", "-900.00", "2024-03-02", "PAYCHECK", "INCOME")},
				NextCursor: "c2",
				HasMore:    false,
			},
		}}
		svc := NewSyncService(db, client, households, defaultTestMap(t), 500)

		summary, err := svc.Sync(context.Background(), user.ID, conn.ID)
		testutil.AssertNoError(t, err)

		if summary.Added != 2 {
			t.Errorf("expected 2 added, got %d", summary.Added)
		}

		var reloaded models.ProviderItem
		db.First(&reloaded, "id = ?", conn.ID)
		if reloaded.Cursor == nil || *reloaded.Cursor != "c2" {
			t.Errorf("expected cursor c2, got %v", reloaded.Cursor)
		}
		if reloaded.Status != models.SyncStatusIdle {
			t.Errorf("expected idle status, got %s", reloaded.Status)
		}
		if reloaded.LastSyncedAt == nil {
			t.Error("expected last_synced_at recorded")
		}

		// Provider labels that map to seeded categories classify the row.
		var coffee models.Transaction
		db.First(&coffee, "external_id = ?", "t1")
		if coffee.ClassifiedBy != models.ClassifiedByProvider {
			t.Errorf("expected provider provenance, got %q", coffee.ClassifiedBy)
		}
		if coffee.CategoryID == nil {
			t.Error("expected mapped category")
		}
		if coffee.Source != models.SourceProvider {
			t.Errorf("expected provider source, got %s", coffee.Source)
		}

		// A placeholder account was created for the unknown provider account.
		var account models.Account
		if err := db.First(&account, "provider_account_id = ?", "acc-1").Error; err != nil {
			t.Fatalf("expected placeholder account: %v", err)
		}
		if coffee.AccountID == nil || *coffee.AccountID != account.ID {
			t.Error("expected transaction attached to placeholder account")
		}
	})

	t.Run("resumes_from_persisted_cursor_after_failure", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)
		conn := testutil.CreateTestConnection(t, db, household.ID)

		pages := map[string]*provider.SyncPage{
			"": {
				Added:      []provider.Item{providerItem("t1", "acc-1", "1.00", "2024-03-01", "ONE", "")},
				NextCursor: "c1", HasMore: true,
			},
			"c1": {
				Added:      []provider.Item{providerItem("t2", "acc-1", "2.00", "2024-03-02", "TWO", "")},
				NextCursor: "c2", HasMore: true,
			},
			"c2": {
				Added:      []provider.Item{providerItem("t3", "acc-1", "3.00", "2024-03-03", "THREE", "")},
				NextCursor: "c3", HasMore: false,
			},
		}

		// First run dies on the third page request.
		client := &fakeProviderClient{pages: pages, failOn: map[int]bool{3: true}}
		svc := NewSyncService(db, client, households, defaultTestMap(t), 500)

		_, err := svc.Sync(context.Background(), user.ID, conn.ID)
		testutil.AssertAppError(t, err, "PROVIDER_UNAVAILABLE")

		var mid models.ProviderItem
		db.First(&mid, "id = ?", conn.ID)
		if mid.Status != models.SyncStatusErrored {
			t.Errorf("expected errored status, got %s", mid.Status)
		}
		if mid.LastError == nil {
			t.Error("expected last_error recorded")
		}
		// The cursor reflects the pages that landed, not the failed request.
		if mid.Cursor == nil || *mid.Cursor != "c2" {
			t.Fatalf("expected cursor c2 after two applied pages, got %v", mid.Cursor)
		}

		// Second run resumes from c2 and completes.
		client2 := &fakeProviderClient{pages: pages}
		svc2 := NewSyncService(db, client2, households, defaultTestMap(t), 500)
		summary, err := svc2.Sync(context.Background(), user.ID, conn.ID)
		testutil.AssertNoError(t, err)
		if summary.Added != 1 {
			t.Errorf("expected 1 added on resume, got %d", summary.Added)
		}
		if len(client2.cursors) != 1 || client2.cursors[0] != "c2" {
			t.Errorf("expected resume to request cursor c2 only, got %v", client2.cursors)
		}

		var count int64
		db.Model(&models.Transaction{}).Where("household_id = ?", household.ID).Count(&count)
		if count != 3 {
			t.Errorf("expected 3 transactions total, got %d", count)
		}

		var final models.ProviderItem
		db.First(&final, "id = ?", conn.ID)
		if final.Status != models.SyncStatusIdle || final.LastError != nil {
			t.Errorf("expected clean idle state, got status=%s error=%v", final.Status, final.LastError)
		}
	})

	t.Run("modified_updates_removed_deletes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)
		conn := testutil.CreateTestConnection(t, db, household.ID)

		client := &fakeProviderClient{pages: map[string]*provider.SyncPage{
			"": {
				Added:      []provider.Item{providerItem("keep", "acc-1", "10.00", "2024-03-01", "KEEP", ""), providerItem("gone", "acc-1", "5.00", "2024-03-01", "GONE", "")},
				NextCursor: "c1", HasMore: false,
			},
			"c1": {
				Modified:   []provider.Item{providerItem("keep", "acc-1", "12.00", "2024-03-01", "KEEP UPDATED", "")},
				Removed:    []provider.RemovedItem{{TransactionID: "gone"}},
				NextCursor: "c2", HasMore: false,
			},
		}}
		svc := NewSyncService(db, client, households, defaultTestMap(t), 500)

		_, err := svc.Sync(context.Background(), user.ID, conn.ID)
		testutil.AssertNoError(t, err)

		summary, err := svc.Sync(context.Background(), user.ID, conn.ID)
		testutil.AssertNoError(t, err)
		if summary.Modified != 1 || summary.Removed != 1 {
			t.Errorf("expected 1 modified and 1 removed, got %+v", summary)
		}

		var kept models.Transaction
		db.First(&kept, "external_id = ?", "keep")
		if !kept.Amount.Equal(decimal.RequireFromString("12.00")) {
			t.Errorf("expected updated amount 12.00, got %s", kept.Amount)
		}
		if kept.Name != "KEEP UPDATED" {
			t.Errorf("expected updated name, got %q", kept.Name)
		}

		// Removed rows are gone outright, not soft-deleted.
		var count int64
		db.Unscoped().Model(&models.Transaction{}).Where("external_id = ?", "gone").Count(&count)
		if count != 0 {
			t.Errorf("expected removed row hard-deleted, found %d", count)
		}
	})

	t.Run("user_classification_survives_provider_update", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)
		conn := testutil.CreateTestConnection(t, db, household.ID)
		shopping := testutil.GetCategoryByName(t, db, household.ID, "Shopping")

		client := &fakeProviderClient{pages: map[string]*provider.SyncPage{
			"": {
				Added:      []provider.Item{providerItem("t1", "acc-1", "20.00", "2024-03-01", "STORE", "FOOD_AND_DRINK")},
				NextCursor: "c1", HasMore: false,
			},
			"c1": {
				Modified:   []provider.Item{providerItem("t1", "acc-1", "21.00", "2024-03-01", "STORE", "FOOD_AND_DRINK")},
				NextCursor: "c2", HasMore: false,
			},
		}}
		svc := NewSyncService(db, client, households, defaultTestMap(t), 500)

		_, err := svc.Sync(context.Background(), user.ID, conn.ID)
		testutil.AssertNoError(t, err)

		// The user recategorizes between syncs.
		db.Model(&models.Transaction{}).Where("external_id = ?", "t1").Updates(map[string]interface{}{
			"category_id": shopping.ID, "classified_by": models.ClassifiedByUser,
		})

		_, err = svc.Sync(context.Background(), user.ID, conn.ID)
		testutil.AssertNoError(t, err)

		var row models.Transaction
		db.First(&row, "external_id = ?", "t1")
		if row.CategoryID == nil || *row.CategoryID != shopping.ID {
			t.Error("expected user category to survive the provider update")
		}
		if row.ClassifiedBy != models.ClassifiedByUser {
			t.Errorf("expected user provenance to survive, got %q", row.ClassifiedBy)
		}
		// Non-category fields still update.
		if !row.Amount.Equal(decimal.RequireFromString("21.00")) {
			t.Errorf("expected amount 21.00, got %s", row.Amount)
		}
	})

	t.Run("concurrent_sync_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)
		conn := testutil.CreateTestConnection(t, db, household.ID)
		db.Model(conn).Update("status", models.SyncStatusPaging)

		client := &fakeProviderClient{pages: map[string]*provider.SyncPage{}}
		svc := NewSyncService(db, client, households, defaultTestMap(t), 500)

		_, err := svc.Sync(context.Background(), user.ID, conn.ID)
		testutil.AssertAppError(t, err, "CONNECTION_SYNCING")
		if client.requests != 0 {
			t.Errorf("expected no provider requests, got %d", client.requests)
		}
	})

	t.Run("no_client_configured", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)
		conn := testutil.CreateTestConnection(t, db, household.ID)

		svc := NewSyncService(db, nil, households, defaultTestMap(t), 500)
		_, err := svc.Sync(context.Background(), user.ID, conn.ID)
		testutil.AssertAppError(t, err, "PROVIDER_UNAVAILABLE")
	})
}

func TestConnections(t *testing.T) {
	t.Run("owner_only_create", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)
		svc := NewSyncService(db, nil, households, nil, 0)

		owner := testutil.CreateTestUser(t, db)
		member := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, owner.ID)
		testutil.AddTestMember(t, db, household.ID, member.ID)

		_, err := svc.CreateConnection(member.ID, household.ID, "token", "Bank")
		testutil.AssertAppError(t, err, "OWNER_ROLE_REQUIRED")

		conn, err := svc.CreateConnection(owner.ID, household.ID, "token", "Bank")
		testutil.AssertNoError(t, err)
		if conn.Status != models.SyncStatusIdle {
			t.Errorf("expected idle status, got %s", conn.Status)
		}
		if conn.Cursor != nil {
			t.Error("expected nil cursor on a fresh connection")
		}
	})

	t.Run("delete_keeps_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)
		svc := NewSyncService(db, nil, households, nil, 0)

		owner := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, owner.ID)
		conn := testutil.CreateTestConnection(t, db, household.ID)
		testutil.CreateTestTransaction(t, db, household.ID, nil, d("10.00"))

		testutil.AssertNoError(t, svc.DeleteConnection(owner.ID, conn.ID))

		var txCount int64
		db.Model(&models.Transaction{}).Where("household_id = ?", household.ID).Count(&txCount)
		if txCount != 1 {
			t.Errorf("expected synced transactions to remain, got %d", txCount)
		}
	})
}
