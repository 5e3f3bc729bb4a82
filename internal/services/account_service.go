package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
)

// accountService handles account-related business logic.
type accountService struct {
	db         *gorm.DB
	households HouseholdServicer
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB, households HouseholdServicer) AccountServicer {
	return &accountService{db: db, households: households}
}

// CreateAccount creates a manual (non provider-linked) account.
func (s *accountService) CreateAccount(userID, householdID, name string, accountType models.AccountType, institution, currency string) (*models.Account, error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if currency == "" {
		currency = "USD"
	}

	account := &models.Account{
		HouseholdID: householdID,
		Name:        name,
		Type:        accountType,
		Institution: institution,
		Currency:    currency,
	}
	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// GetHouseholdAccounts lists a household's accounts.
func (s *accountService) GetHouseholdAccounts(userID, householdID string) ([]models.Account, error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var accounts []models.Account
	if err := s.db.Where("household_id = ?", householdID).Order("name").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return accounts, nil
}

// GetAccountByID retrieves an account the user may access.
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if _, err := s.households.RequireMember(userID, account.HouseholdID); err != nil {
		// Do not reveal whether the account exists.
		return nil, apperrors.ErrAccountNotFound
	}
	return &account, nil
}

// UpdateAccount updates mutable account fields.
func (s *accountService) UpdateAccount(userID, accountID string, name *string, accountType *models.AccountType) (*models.Account, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != nil && *name != "" {
		updates["name"] = *name
	}
	if accountType != nil {
		updates["type"] = *accountType
	}
	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return account, nil
}

// DeleteAccount soft-deletes an account. Its transactions keep their
// account id for history but the account no longer lists.
func (s *accountService) DeleteAccount(userID, accountID string) error {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(account).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
