package models

// TransferCategoryName is the reserved category assigned to both legs of a
// linked transfer pair. Every household gets it at bootstrap.
const TransferCategoryName = "Transfer"

// Category represents a spending category scoped to a household.
type Category struct {
	Base
	HouseholdID string `gorm:"type:uuid;not null;uniqueIndex:idx_household_category" json:"household_id"`
	Name        string `gorm:"not null;uniqueIndex:idx_household_category" json:"name"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`

	Transactions []Transaction `gorm:"foreignKey:CategoryID" json:"transactions,omitempty"`
}
