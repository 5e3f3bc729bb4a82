package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"hearth/internal/logger"
	"hearth/internal/models"
)

// auditService persists an audit trail of mutating actions.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an action. Failures are logged and swallowed; auditing
// never fails the request that triggered it.
func (s *auditService) Log(userID, action, entityType, entityID, clientIP string, details map[string]interface{}) {
	var detailsJSON string
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			detailsJSON = string(raw)
		}
	}

	entry := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		ClientIP:   clientIP,
		Details:    detailsJSON,
	}
	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Warnw("failed to write audit log", "action", action, "error", err)
	}
}
