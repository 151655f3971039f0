package repository

import (
	"errors"

	"github.com/ducnx/licgate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RuleRepository handles the singleton notification rule row
type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Get returns the notification rule, falling back to the disabled default
// when no row exists yet
func (r *RuleRepository) Get() (*model.NotificationRule, error) {
	var rule model.NotificationRule
	err := r.db.Where("id = ?", 1).First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DefaultNotificationRule(), nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// Upsert writes the singleton rule row, creating it on first save
func (r *RuleRepository) Upsert(rule *model.NotificationRule) error {
	rule.ID = 1
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"enabled":           rule.Enabled,
			"reminder_template": rule.ReminderTemplate,
			"expired_template":  rule.ExpiredTemplate,
			"email_fallback":    rule.EmailFallback,
		}),
	}).Create(rule).Error
}
