package repository

import (
	"log"

	"github.com/ducnx/licgate/internal/model"
	"gorm.io/gorm"
)

// AuditRepository handles the append-only audit log
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append writes one audit entry. Audit failures are logged and swallowed:
// a full audit table must never take the validator down with it.
func (r *AuditRepository) Append(category model.AuditCategory, action, contactKey, detail string) {
	entry := model.AuditLog{
		Category:   category,
		Action:     action,
		ContactKey: contactKey,
		Detail:     detail,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		log.Printf("⚠️  Failed to write audit entry (%s/%s): %v", category, action, err)
	}
}

// List returns recent audit entries, newest first
func (r *AuditRepository) List(category string, limit, offset int) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	q := r.db.Order("created_at DESC").Limit(limit).Offset(offset)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	err := q.Find(&entries).Error
	return entries, err
}
