package services

import (
	"log"

	"gorm.io/gorm"
	"referral-rewards/internal/models"
)

// AuditService is the append-only sink for distribution decisions. The
// engine only writes to it; reads are for compliance tooling behind the
// admin API.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record appends one audit entry. A failed append must never fail the
// business operation, so errors are logged and swallowed.
func (s *AuditService) Record(actorID uint, action, resourceType, resourceRef string, success bool, details map[string]interface{}) {
	entry := models.AuditLog{
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceRef:  resourceRef,
		Success:      success,
		Details:      models.JSONB(details),
	}

	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("Failed to write audit log entry %s/%s: %v", action, resourceRef, err)
	}
}

// GetLogs returns audit entries, newest first.
func (s *AuditService) GetLogs(limit int, offset int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := s.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
