package model

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus defines the lifecycle state of a subscription
type SubscriptionStatus string

const (
	StatusActive  SubscriptionStatus = "active"
	StatusTrial   SubscriptionStatus = "trial"
	StatusExpired SubscriptionStatus = "expired"
	StatusBanned  SubscriptionStatus = "banned"
)

// DefaultMaxDevices is the device capacity assigned to new subscriptions
const DefaultMaxDevices = 4

// Subscription represents a licensed customer account
type Subscription struct {
	ID         uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ContactKey string             `json:"contact_key" gorm:"uniqueIndex;not null;size:255"` // email, the external join key
	Status     SubscriptionStatus `json:"status" gorm:"type:subscription_status;default:'trial'"`
	Plan       string             `json:"plan" gorm:"size:50;default:'basic'"`
	ExpiresAt  *time.Time         `json:"expires_at" gorm:"type:timestamptz"` // NULL while unmanaged/trial
	MaxDevices int                `json:"max_devices" gorm:"not null;default:4"`
	Phone      string             `json:"phone" gorm:"size:20;default:''"` // E.164-ish digits, notification destination
	LastSeenAt *time.Time         `json:"last_seen_at"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`

	// Relations
	Devices []DeviceBinding `json:"devices" gorm:"foreignKey:SubscriptionID"`
}

// IsExpired reports whether the subscription is past its expiry date
func (s *Subscription) IsExpired(now time.Time) bool {
	if s.Status == StatusExpired {
		return true
	}
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// FindDevice returns the binding for a fingerprint, or nil if not bound
func (s *Subscription) FindDevice(fingerprint string) *DeviceBinding {
	for i := range s.Devices {
		if s.Devices[i].Fingerprint == fingerprint {
			return &s.Devices[i]
		}
	}
	return nil
}

// DeviceBinding ties one hardware fingerprint to its subscription
type DeviceBinding struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SubscriptionID uuid.UUID `json:"subscription_id" gorm:"type:uuid;not null;uniqueIndex:idx_sub_fingerprint"`
	Fingerprint    string    `json:"fingerprint" gorm:"not null;size:255;uniqueIndex:idx_sub_fingerprint"`
	DisplayName    string    `json:"display_name" gorm:"size:100;default:''"`
	FirstBoundAt   time.Time `json:"first_bound_at" gorm:"not null"`
	LastSeenAt     time.Time `json:"last_seen_at" gorm:"not null"`
}
