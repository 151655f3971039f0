package model

import "time"

// SessionCredential is the singleton row holding the chat-gateway pairing
// credentials, persisted so a restart can resume without re-pairing.
// The blob is opaque to us; the gateway hands it out and reads it back.
type SessionCredential struct {
	ID        int       `json:"-" gorm:"primaryKey"` // always 1
	Blob      []byte    `json:"-" gorm:"type:bytea"`
	UpdatedAt time.Time `json:"updated_at"`
}
