package models

// AuditLog records a mutating API action for traceability.
type AuditLog struct {
	Base
	UserID     string `gorm:"type:uuid;index" json:"user_id"`
	Action     string `gorm:"not null" json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	ClientIP   string `json:"client_ip"`
	Details    string `json:"details"`
}
