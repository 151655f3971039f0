package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditCategory classifies audit entries
type AuditCategory string

const (
	AuditInfo     AuditCategory = "info"
	AuditSecurity AuditCategory = "security"
)

// Audit actions written by the core services
const (
	AuditActionDeviceBound    = "device_bound"
	AuditActionDeviceRefresh  = "device_refresh"
	AuditActionDeviceLimitHit = "device_limit_hit"
	AuditActionDeviceRemoved  = "device_removed"
	AuditActionDevicesReset   = "devices_reset"
	AuditActionCapacityChange = "capacity_changed"
	AuditActionNotifyRun      = "notify_run"
	AuditActionSessionLogout  = "session_logout"
)

// AuditLog is one append-only human-readable audit entry
type AuditLog struct {
	ID         uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Category   AuditCategory `json:"category" gorm:"size:20;not null;default:'info';index"`
	Action     string        `json:"action" gorm:"size:50;not null;index"`
	ContactKey string        `json:"contact_key" gorm:"size:255;default:'';index"`
	Detail     string        `json:"detail" gorm:"type:text"`
	CreatedAt  time.Time     `json:"created_at"`
}
