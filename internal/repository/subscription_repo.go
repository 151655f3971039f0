package repository

import (
	"time"

	"github.com/ducnx/licgate/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionRepository handles database operations for Subscription
type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create inserts a new subscription
func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Create(sub).Error
}

// FindByID finds a subscription by UUID, devices included
func (r *SubscriptionRepository) FindByID(id uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.
		Preload("Devices", func(db *gorm.DB) *gorm.DB {
			return db.Order("first_bound_at ASC")
		}).
		Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByContactKey finds a subscription by contact key, devices included
func (r *SubscriptionRepository) FindByContactKey(contactKey string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.
		Preload("Devices", func(db *gorm.DB) *gorm.DB {
			return db.Order("first_bound_at ASC")
		}).
		Where("contact_key = ?", contactKey).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// List returns subscriptions matching an optional contact-key/plan filter
func (r *SubscriptionRepository) List(query string, limit, offset int) ([]model.Subscription, error) {
	var subs []model.Subscription
	q := r.db.Preload("Devices").Order("created_at DESC").Limit(limit).Offset(offset)
	if query != "" {
		q = q.Where("contact_key LIKE ? OR plan LIKE ?", "%"+query+"%", "%"+query+"%")
	}
	err := q.Find(&subs).Error
	return subs, err
}

// Update applies a partial update to a subscription
func (r *SubscriptionRepository) Update(id uuid.UUID, updates map[string]interface{}) error {
	return r.db.Model(&model.Subscription{}).Where("id = ?", id).Updates(updates).Error
}

// Delete removes a subscription and its device bindings
func (r *SubscriptionRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subscription_id = ?", id).Delete(&model.DeviceBinding{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Subscription{}).Error
	})
}

// ========== Device registry ==========

// AddDevice appends a new device binding
func (r *SubscriptionRepository) AddDevice(binding *model.DeviceBinding) error {
	return r.db.Create(binding).Error
}

// TouchDevice refreshes last_seen_at (and display name if supplied) on a bound device
func (r *SubscriptionRepository) TouchDevice(subscriptionID uuid.UUID, fingerprint, displayName string, now time.Time) error {
	updates := map[string]interface{}{
		"last_seen_at": now,
	}
	if displayName != "" {
		updates["display_name"] = displayName
	}
	return r.db.Model(&model.DeviceBinding{}).
		Where("subscription_id = ? AND fingerprint = ?", subscriptionID, fingerprint).
		Updates(updates).Error
}

// RemoveDevice deletes one binding; no-op if the fingerprint is not bound
func (r *SubscriptionRepository) RemoveDevice(subscriptionID uuid.UUID, fingerprint string) error {
	return r.db.
		Where("subscription_id = ? AND fingerprint = ?", subscriptionID, fingerprint).
		Delete(&model.DeviceBinding{}).Error
}

// ResetDevices clears the whole device list for a subscription
func (r *SubscriptionRepository) ResetDevices(subscriptionID uuid.UUID) error {
	return r.db.
		Where("subscription_id = ?", subscriptionID).
		Delete(&model.DeviceBinding{}).Error
}

// SetCapacity updates max_devices. Existing bindings above the new cap
// are kept; the limit only applies to future binds.
func (r *SubscriptionRepository) SetCapacity(subscriptionID uuid.UUID, maxDevices int) error {
	return r.db.Model(&model.Subscription{}).
		Where("id = ?", subscriptionID).
		Update("max_devices", maxDevices).Error
}

// ========== Liveness ==========

// BulkTouchLastSeen sets last_seen_at for all given contact keys in one statement
func (r *SubscriptionRepository) BulkTouchLastSeen(contactKeys []string, now time.Time) error {
	if len(contactKeys) == 0 {
		return nil
	}
	return r.db.Model(&model.Subscription{}).
		Where("contact_key IN ?", contactKeys).
		Update("last_seen_at", now).Error
}

// ActiveCount counts subscriptions seen since the given time
func (r *SubscriptionRepository) ActiveCount(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Subscription{}).
		Where("last_seen_at > ?", since).
		Count(&count).Error
	return count, err
}

// ========== Notification cohorts ==========

// FindExpiringOn returns subscriptions with a phone on file whose expiry
// date matches the given calendar day exactly
func (r *SubscriptionRepository) FindExpiringOn(day time.Time) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.
		Where("expires_at IS NOT NULL AND DATE(expires_at) = ? AND phone <> ''", day.Format("2006-01-02")).
		Find(&subs).Error
	return subs, err
}
