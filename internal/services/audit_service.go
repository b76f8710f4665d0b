package services

import (
	"encoding/json"

	"leavedesk/internal/logger"
	"leavedesk/internal/models"

	"gorm.io/gorm"
)

// Audited actions.
const (
	ActionCreateAccount  = "CREATE_ACCOUNT"
	ActionUpdateBalances = "UPDATE_BALANCES"
	ActionUpdatePassword = "UPDATE_PASSWORD"
	ActionDeleteAccount  = "DELETE_ACCOUNT"
	ActionSubmitLeave    = "SUBMIT_LEAVE"
	ActionDeleteLeave    = "DELETE_LEAVE"
	ActionOverrideDays   = "OVERRIDE_LEAVE_DAYS"

	ResourceAccount     = "account"
	ResourceLeaveRecord = "leave_record"
)

// auditService handles audit log recording.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation.
func (s *auditService) Log(actorID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"actor_id", actorID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}
