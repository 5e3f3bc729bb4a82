package models

// MemberRole represents a user's role within a household
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

// Household is the owning tenant for all ledger data.
type Household struct {
	Base
	Name string `gorm:"not null" json:"name"`

	// When true, a classification pass runs automatically after file imports.
	AutoClassifyImports bool `gorm:"default:false" json:"auto_classify_imports"`

	Members []HouseholdMember `gorm:"foreignKey:HouseholdID" json:"members,omitempty"`
}

// HouseholdMember links a user to a household with a role. Provider
// connection actions require the owner role.
type HouseholdMember struct {
	Base
	HouseholdID string     `gorm:"type:uuid;not null;uniqueIndex:idx_household_user" json:"household_id"`
	UserID      string     `gorm:"type:uuid;not null;uniqueIndex:idx_household_user" json:"user_id"`
	Role        MemberRole `gorm:"not null;default:'member'" json:"role"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
