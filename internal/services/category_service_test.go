package services

import (
	"testing"

	"hearth/internal/models"
	"hearth/internal/testutil"
)

func TestCategories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	households := NewHouseholdService(db)
	svc := NewCategoryService(db, households)

	user := testutil.CreateTestUser(t, db)
	household := testutil.CreateTestHousehold(t, db, user.ID)

	t.Run("create_and_list", func(t *testing.T) {
		created, err := svc.CreateCategory(user.ID, household.ID, "Pets", "#8B5CF6", "paw")
		testutil.AssertNoError(t, err)
		if created.Name != "Pets" {
			t.Errorf("unexpected category %+v", created)
		}

		categories, err := svc.GetHouseholdCategories(user.ID, household.ID)
		testutil.AssertNoError(t, err)
		found := false
		for _, c := range categories {
			if c.ID == created.ID {
				found = true
			}
		}
		if !found {
			t.Error("created category missing from listing")
		}
	})

	t.Run("duplicate_name_rejected", func(t *testing.T) {
		_, err := svc.CreateCategory(user.ID, household.ID, "Pets", "", "")
		testutil.AssertAppError(t, err, "DUPLICATE_CATEGORY")
	})

	t.Run("delete_leaves_transactions_uncategorized", func(t *testing.T) {
		category, err := svc.CreateCategory(user.ID, household.ID, "Hobbies", "", "")
		testutil.AssertNoError(t, err)
		row := testutil.CreateTestTransaction(t, db, household.ID, nil, d("12.00"))
		db.Model(row).Update("category_id", category.ID)

		testutil.AssertNoError(t, svc.DeleteCategory(user.ID, category.ID))

		var reloaded models.Transaction
		db.First(&reloaded, "id = ?", row.ID)
		if reloaded.CategoryID != nil {
			t.Error("expected category reference cleared on delete")
		}
	})
}
