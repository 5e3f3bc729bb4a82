package models

import "time"

// SyncStatus tracks the sync state machine of one provider connection.
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusPaging  SyncStatus = "paging"
	SyncStatusErrored SyncStatus = "errored"
)

// ProviderItem is one linked connection to the aggregation provider.
// Cursor is the opaque resume token for incremental sync; nil means the
// next run is a full historical sync. It is persisted after every page so
// a crashed run resumes from the last completed page.
type ProviderItem struct {
	Base
	HouseholdID     string     `gorm:"type:uuid;not null;index" json:"household_id"`
	AccessToken     string     `gorm:"not null" json:"-"`
	InstitutionName string     `json:"institution_name"`
	Cursor          *string    `json:"cursor,omitempty"`
	Status          SyncStatus `gorm:"not null;default:'idle'" json:"status"`
	LastError       *string    `json:"last_error,omitempty"`
	LastSyncedAt    *time.Time `json:"last_synced_at,omitempty"`

	Accounts []Account `gorm:"foreignKey:ProviderItemID" json:"accounts,omitempty"`
}
