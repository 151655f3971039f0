package model

import "time"

// NotificationRule is the singleton configuration row for expiry notifications.
// Templates accept {name}, {plan} and {status} placeholders.
type NotificationRule struct {
	ID               int       `json:"id" gorm:"primaryKey"` // always 1
	Enabled          bool      `json:"enabled" gorm:"default:false"`
	ReminderTemplate string    `json:"reminder_template" gorm:"type:text"`
	ExpiredTemplate  string    `json:"expired_template" gorm:"type:text"`
	EmailFallback    bool      `json:"email_fallback" gorm:"default:false"` // retry over SMTP when chat delivery fails
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultNotificationRule returns the rule seeded on first boot
func DefaultNotificationRule() *NotificationRule {
	return &NotificationRule{
		ID:               1,
		Enabled:          false,
		ReminderTemplate: "Hi {name}, your {plan} subscription expires in 2 days. Renew to keep your access.",
		ExpiredTemplate:  "Hi {name}, your {plan} subscription has expired. Renew to restore your access.",
	}
}
