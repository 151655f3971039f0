package repository

import (
	"time"

	"github.com/ducnx/licgate/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OperatorRepository handles database operations for operator accounts
type OperatorRepository struct {
	db *gorm.DB
}

func NewOperatorRepository(db *gorm.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

// Create inserts a new operator
func (r *OperatorRepository) Create(op *model.Operator) error {
	return r.db.Create(op).Error
}

// FindByID finds an operator by UUID
func (r *OperatorRepository) FindByID(id uuid.UUID) (*model.Operator, error) {
	var op model.Operator
	err := r.db.Where("id = ?", id).First(&op).Error
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// FindByEmail finds an operator by email
func (r *OperatorRepository) FindByEmail(email string) (*model.Operator, error) {
	var op model.Operator
	err := r.db.Where("email = ?", email).First(&op).Error
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// AddDevice adds or refreshes an operator device token
func (r *OperatorRepository) AddDevice(operatorID uuid.UUID, token string, deviceType string) error {
	device := model.OperatorDevice{
		OperatorID:   operatorID,
		FCMToken:     token,
		DeviceType:   deviceType,
		LastActiveAt: time.Now(),
	}
	// Upsert: on conflict do update
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "operator_id"}, {Name: "fcm_token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_active_at": time.Now(),
			"device_type":    deviceType,
		}),
	}).Create(&device).Error
}

// AllDevices returns every registered operator device (pairing alerts go to all)
func (r *OperatorRepository) AllDevices() ([]model.OperatorDevice, error) {
	var devices []model.OperatorDevice
	err := r.db.Find(&devices).Error
	return devices, err
}
