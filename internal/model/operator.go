package model

import (
	"time"

	"github.com/google/uuid"
)

// Operator is an administrative account for the management surface
type Operator struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password  string    `json:"-" gorm:"size:255;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OperatorResponse is the safe version of Operator for API responses
type OperatorResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// ToResponse converts Operator to safe OperatorResponse
func (o *Operator) ToResponse() OperatorResponse {
	return OperatorResponse{ID: o.ID, Name: o.Name, Email: o.Email}
}

// OperatorDevice represents an operator's device for push alerts
// (e.g. "messaging session needs re-pairing")
type OperatorDevice struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OperatorID   uuid.UUID `json:"operator_id" gorm:"not null;uniqueIndex:idx_operator_token"`
	FCMToken     string    `json:"fcm_token" gorm:"not null;uniqueIndex:idx_operator_token"`
	DeviceType   string    `json:"device_type" gorm:"size:20;default:'unknown'"` // android, ios, web
	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
}
