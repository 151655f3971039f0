package model

import "time"

// ========== Validation DTOs ==========

// Status vocabulary returned to client installations. Anything other
// than "active" means "do not proceed".
const (
	ValidationActive  = "active"
	ValidationBanned  = "banned"
	ValidationExpired = "expired"
	ValidationDenied  = "denied"
	ValidationError   = "error"
)

// Contact keys and fingerprints are opaque identifiers minted by the
// client installer; only presence and length are validated so the
// decision pipeline stays the single source of denial.
type ValidateRequest struct {
	ContactKey  string `json:"contact_key" binding:"required,max=255"`
	Fingerprint string `json:"fingerprint" binding:"required,max=255"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

type ValidateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type HeartbeatRequest struct {
	ContactKey string `json:"contact_key" binding:"required,max=255"`
}

// ========== Auth DTOs ==========

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginResponse struct {
	Token    string           `json:"token"`
	Operator OperatorResponse `json:"operator"`
}

type RegisterDeviceRequest struct {
	FCMToken   string `json:"fcm_token" binding:"required"`
	DeviceType string `json:"device_type" binding:"required"`
}

// ========== Subscription management DTOs ==========

type CreateSubscriptionRequest struct {
	ContactKey string     `json:"contact_key" binding:"required,email"`
	Status     string     `json:"status" binding:"omitempty,oneof=active trial expired banned"`
	Plan       string     `json:"plan" binding:"max=50"`
	ExpiresAt  *time.Time `json:"expires_at"`
	MaxDevices int        `json:"max_devices" binding:"omitempty,min=1"`
	Phone      string     `json:"phone" binding:"max=20"`
}

type UpdateSubscriptionRequest struct {
	Status    string     `json:"status" binding:"omitempty,oneof=active trial expired banned"`
	Plan      string     `json:"plan" binding:"max=50"`
	ExpiresAt *time.Time `json:"expires_at"`
	Phone     *string    `json:"phone" binding:"omitempty,max=20"`
}

type SetCapacityRequest struct {
	MaxDevices int `json:"max_devices" binding:"required,min=1"`
}

type RemoveDeviceRequest struct {
	Fingerprint string `json:"fingerprint" binding:"required"`
}

type SubscriptionListRequest struct {
	Query  string `form:"q"`
	Limit  int    `form:"limit,default=50"`
	Offset int    `form:"offset"`
}

// ========== Messaging DTOs ==========

type SessionStatusResponse struct {
	State        string `json:"state"`
	ChallengeURL string `json:"challenge_url,omitempty"` // only while pairing
}

// ========== Notification settings DTOs ==========

type UpdateRuleRequest struct {
	Enabled          *bool   `json:"enabled"`
	ReminderTemplate *string `json:"reminder_template"`
	ExpiredTemplate  *string `json:"expired_template"`
	EmailFallback    *bool   `json:"email_fallback"`
}

// ========== Audit DTOs ==========

type AuditListRequest struct {
	Category string `form:"category" binding:"omitempty,oneof=info security"`
	Limit    int    `form:"limit,default=100"`
	Offset   int    `form:"offset"`
}

// ========== Stats DTOs ==========

type StatsResponse struct {
	ActiveClients int    `json:"active_clients"`
	SessionState  string `json:"session_state"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
