package services

import (
	"testing"

	"hearth/internal/models"
	"hearth/internal/testutil"
)

func TestAccounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	households := NewHouseholdService(db)
	svc := NewAccountService(db, households)

	user := testutil.CreateTestUser(t, db)
	outsider := testutil.CreateTestUser(t, db)
	household := testutil.CreateTestHousehold(t, db, user.ID)

	t.Run("create_defaults_currency", func(t *testing.T) {
		account, err := svc.CreateAccount(user.ID, household.ID, "Joint Checking", models.AccountTypeChecking, "First Bank", "")
		testutil.AssertNoError(t, err)
		if account.Currency != "USD" {
			t.Errorf("expected USD default, got %q", account.Currency)
		}
	})

	t.Run("membership_hides_existence", func(t *testing.T) {
		account, err := svc.CreateAccount(user.ID, household.ID, "Savings", models.AccountTypeSavings, "", "USD")
		testutil.AssertNoError(t, err)

		_, err = svc.GetAccountByID(outsider.ID, account.ID)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})

	t.Run("delete_keeps_transaction_history", func(t *testing.T) {
		account, err := svc.CreateAccount(user.ID, household.ID, "Old Card", models.AccountTypeCredit, "", "USD")
		testutil.AssertNoError(t, err)
		row := testutil.CreateTestTransaction(t, db, household.ID, &account.ID, d("42.00"))

		testutil.AssertNoError(t, svc.DeleteAccount(user.ID, account.ID))

		accounts, err := svc.GetHouseholdAccounts(user.ID, household.ID)
		testutil.AssertNoError(t, err)
		for _, a := range accounts {
			if a.ID == account.ID {
				t.Error("deleted account must not list")
			}
		}

		var reloaded models.Transaction
		db.First(&reloaded, "id = ?", row.ID)
		if reloaded.AccountID == nil || *reloaded.AccountID != account.ID {
			t.Error("expected transaction to keep its account reference")
		}
	})
}
