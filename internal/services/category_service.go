package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db         *gorm.DB
	households HouseholdServicer
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB, households HouseholdServicer) CategoryServicer {
	return &categoryService{db: db, households: households}
}

// CreateCategory creates a category scoped to the household.
func (s *categoryService) CreateCategory(userID, householdID, name, color, icon string) (*models.Category, error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	var count int64
	s.db.Model(&models.Category{}).Where("household_id = ? AND name = ?", householdID, name).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateCategory
	}

	category := &models.Category{
		HouseholdID: householdID,
		Name:        name,
		Color:       color,
		Icon:        icon,
	}
	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

// GetHouseholdCategories lists a household's categories.
func (s *categoryService) GetHouseholdCategories(userID, householdID string) ([]models.Category, error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var categories []models.Category
	if err := s.db.Where("household_id = ?", householdID).Order("name").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

func (s *categoryService) getCategory(userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if _, err := s.households.RequireMember(userID, category.HouseholdID); err != nil {
		return nil, apperrors.ErrCategoryNotFound
	}
	return &category, nil
}

// UpdateCategory updates mutable category fields.
func (s *categoryService) UpdateCategory(userID, categoryID string, name, color, icon *string) (*models.Category, error) {
	category, err := s.getCategory(userID, categoryID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != nil && *name != "" {
		updates["name"] = *name
	}
	if color != nil {
		updates["color"] = *color
	}
	if icon != nil {
		updates["icon"] = *icon
	}
	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return category, nil
}

// DeleteCategory deletes a category. Transactions referencing it revert
// to uncategorized with provenance cleared so the next automated pass can
// pick them up again.
func (s *categoryService) DeleteCategory(userID, categoryID string) error {
	category, err := s.getCategory(userID, categoryID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Transaction{}).
			Where("category_id = ?", category.ID).
			Updates(map[string]interface{}{
				"category_id":   nil,
				"classified_by": models.ClassifiedByNone,
				"ai_confidence": nil,
			}).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}
