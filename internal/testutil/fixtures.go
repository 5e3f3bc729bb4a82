package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"hearth/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     fmt.Sprintf("Test User %d", counter.Load()),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestHousehold creates a household with the user as its owner and
// the default category set, including the reserved Transfer category.
func CreateTestHousehold(t *testing.T, db *gorm.DB, ownerID string) *models.Household {
	t.Helper()

	household := &models.Household{Name: fmt.Sprintf("Household %d", nextID())}
	if err := db.Create(household).Error; err != nil {
		t.Fatalf("failed to create test household: %v", err)
	}

	member := &models.HouseholdMember{
		HouseholdID: household.ID,
		UserID:      ownerID,
		Role:        models.MemberRoleOwner,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}

	for _, name := range []string{"Food & Dining", "Income", "Shopping", models.TransferCategoryName} {
		category := &models.Category{HouseholdID: household.ID, Name: name}
		if err := db.Create(category).Error; err != nil {
			t.Fatalf("failed to create test category: %v", err)
		}
	}
	return household
}

// AddTestMember adds a user to a household with the member role.
func AddTestMember(t *testing.T, db *gorm.DB, householdID, userID string) *models.HouseholdMember {
	t.Helper()

	member := &models.HouseholdMember{
		HouseholdID: householdID,
		UserID:      userID,
		Role:        models.MemberRoleMember,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to add test member: %v", err)
	}
	return member
}

// CreateTestAccount creates a checking account for the household.
func CreateTestAccount(t *testing.T, db *gorm.DB, householdID string) *models.Account {
	t.Helper()

	account := &models.Account{
		HouseholdID: householdID,
		Name:        fmt.Sprintf("Test Account %d", nextID()),
		Type:        models.AccountTypeChecking,
		Currency:    "USD",
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// GetCategoryByName looks up one of the household's seeded categories.
func GetCategoryByName(t *testing.T, db *gorm.DB, householdID, name string) *models.Category {
	t.Helper()

	var category models.Category
	if err := db.Where("household_id = ? AND name = ?", householdID, name).First(&category).Error; err != nil {
		t.Fatalf("failed to look up category %q: %v", name, err)
	}
	return &category
}

// CreateTestTransaction creates a manual transaction with the given amount
// dated today.
func CreateTestTransaction(t *testing.T, db *gorm.DB, householdID string, accountID *string, amount decimal.Decimal) *models.Transaction {
	t.Helper()
	return CreateTestTransactionOn(t, db, householdID, accountID, amount, time.Now().UTC().Truncate(24*time.Hour))
}

// CreateTestTransactionOn creates a manual transaction on a specific date.
func CreateTestTransactionOn(t *testing.T, db *gorm.DB, householdID string, accountID *string, amount decimal.Decimal, date time.Time) *models.Transaction {
	t.Helper()

	transaction := &models.Transaction{
		HouseholdID: householdID,
		AccountID:   accountID,
		Amount:      amount,
		Date:        date,
		Name:        fmt.Sprintf("Test Transaction %d", nextID()),
		Source:      models.SourceManual,
	}
	if err := db.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return transaction
}

// CreateTestConnection creates an idle provider connection for the household.
func CreateTestConnection(t *testing.T, db *gorm.DB, householdID string) *models.ProviderItem {
	t.Helper()

	item := &models.ProviderItem{
		HouseholdID:     householdID,
		AccessToken:     fmt.Sprintf("access-token-%d", nextID()),
		InstitutionName: "Test Bank",
		Status:          models.SyncStatusIdle,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("failed to create test connection: %v", err)
	}
	return item
}
