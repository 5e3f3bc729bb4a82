package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
)

// defaultCategoryNames is the category set seeded into every new
// household. The reserved Transfer category must be present for transfer
// linking to work.
var defaultCategoryNames = []string{
	"Income",
	"Food & Dining",
	"Transportation",
	"Shopping",
	"Entertainment",
	"Health",
	"Utilities",
	"Insurance",
	"Education",
	"Personal Care",
	"Housing",
	"Savings & Investments",
	models.TransferCategoryName,
	"Other",
}

// householdService handles household and membership logic.
type householdService struct {
	db *gorm.DB
}

// NewHouseholdService creates a new HouseholdServicer.
func NewHouseholdService(db *gorm.DB) HouseholdServicer {
	return &householdService{db: db}
}

// CreateHousehold creates a household, makes the caller its owner and
// seeds the default category set.
func (s *householdService) CreateHousehold(userID, name string) (*models.Household, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "household name is required")
	}

	household := &models.Household{Name: name}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(household).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		member := &models.HouseholdMember{
			HouseholdID: household.ID,
			UserID:      userID,
			Role:        models.MemberRoleOwner,
		}
		if err := tx.Create(member).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for _, categoryName := range defaultCategoryNames {
			category := &models.Category{HouseholdID: household.ID, Name: categoryName}
			if err := tx.Create(category).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return household, nil
}

// GetUserHouseholds lists every household the user belongs to.
func (s *householdService) GetUserHouseholds(userID string) ([]models.Household, error) {
	var households []models.Household
	err := s.db.
		Joins("JOIN household_members ON household_members.household_id = households.id").
		Where("household_members.user_id = ? AND household_members.deleted_at IS NULL", userID).
		Find(&households).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return households, nil
}

// GetHouseholdByID retrieves a household the user is a member of.
func (s *householdService) GetHouseholdByID(userID, householdID string) (*models.Household, error) {
	if _, err := s.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var household models.Household
	if err := s.db.Where("id = ?", householdID).First(&household).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrHouseholdNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &household, nil
}

// UpdateHousehold updates mutable household settings.
func (s *householdService) UpdateHousehold(userID, householdID string, name *string, autoClassify *bool) (*models.Household, error) {
	if _, err := s.RequireOwner(userID, householdID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != nil && *name != "" {
		updates["name"] = *name
	}
	if autoClassify != nil {
		updates["auto_classify_imports"] = *autoClassify
	}
	if len(updates) > 0 {
		if err := s.db.Model(&models.Household{}).Where("id = ?", householdID).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	var household models.Household
	if err := s.db.Where("id = ?", householdID).First(&household).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &household, nil
}

// AddMember adds a user to the household by email. Owner only.
func (s *householdService) AddMember(userID, householdID, email string, role models.MemberRole) (*models.HouseholdMember, error) {
	if _, err := s.RequireOwner(userID, householdID); err != nil {
		return nil, err
	}
	if role != models.MemberRoleOwner && role != models.MemberRoleMember {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "role must be owner or member")
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var existing models.HouseholdMember
	err := s.db.Where("household_id = ? AND user_id = ?", householdID, user.ID).First(&existing).Error
	if err == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "user is already a member")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	member := &models.HouseholdMember{
		HouseholdID: householdID,
		UserID:      user.ID,
		Role:        role,
	}
	if err := s.db.Create(member).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return member, nil
}

// GetMembers lists the household's memberships with users preloaded.
func (s *householdService) GetMembers(userID, householdID string) ([]models.HouseholdMember, error) {
	if _, err := s.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	var members []models.HouseholdMember
	if err := s.db.Preload("User").Where("household_id = ?", householdID).Find(&members).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return members, nil
}

// RequireMember returns the caller's membership or ErrNotHouseholdMember.
// Callers must invoke this before touching household data or making any
// external-service call on the household's behalf.
func (s *householdService) RequireMember(userID, householdID string) (*models.HouseholdMember, error) {
	var member models.HouseholdMember
	err := s.db.Where("household_id = ? AND user_id = ?", householdID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotHouseholdMember
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &member, nil
}

// RequireOwner returns the caller's membership if it carries the owner role.
func (s *householdService) RequireOwner(userID, householdID string) (*models.HouseholdMember, error) {
	member, err := s.RequireMember(userID, householdID)
	if err != nil {
		return nil, err
	}
	if member.Role != models.MemberRoleOwner {
		return nil, apperrors.ErrOwnerRoleRequired
	}
	return member, nil
}
