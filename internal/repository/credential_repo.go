package repository

import (
	"errors"

	"github.com/ducnx/licgate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialRepository persists the chat-gateway session credentials
// across restarts so the session can resume without re-pairing
type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Load returns the stored credential blob, or nil when none is stored
func (r *CredentialRepository) Load() ([]byte, error) {
	var cred model.SessionCredential
	err := r.db.Where("id = ?", 1).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cred.Blob, nil
}

// Save upserts the credential blob
func (r *CredentialRepository) Save(blob []byte) error {
	cred := model.SessionCredential{ID: 1, Blob: blob}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"blob": blob}),
	}).Create(&cred).Error
}

// Clear discards stored credentials (explicit logout)
func (r *CredentialRepository) Clear() error {
	return r.db.Where("id = ?", 1).Delete(&model.SessionCredential{}).Error
}
