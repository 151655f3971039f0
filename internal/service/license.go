package service

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ducnx/licgate/internal/clock"
	"github.com/ducnx/licgate/internal/model"
	"github.com/ducnx/licgate/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Decision is the outcome of a single license validation
type Decision int

const (
	DecisionGranted Decision = iota
	DecisionNewlyBound
	DecisionDeviceLimit
	DecisionExpired
	DecisionBanned
	DecisionNotFound
)

// String returns the decision name for logs and audit entries
func (d Decision) String() string {
	switch d {
	case DecisionGranted:
		return "granted"
	case DecisionNewlyBound:
		return "newly_bound"
	case DecisionDeviceLimit:
		return "device_limit"
	case DecisionExpired:
		return "expired"
	case DecisionBanned:
		return "banned"
	case DecisionNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// LicenseService decides per-request whether a device may use the product
// and manages the device registry under the capacity constraint
type LicenseService struct {
	subRepo   *repository.SubscriptionRepository
	auditRepo *repository.AuditRepository
	clk       clock.Clock

	// Per-contact-key locks: concurrent validations for the same
	// subscription serialize, different subscriptions run in parallel.
	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func NewLicenseService(subRepo *repository.SubscriptionRepository, auditRepo *repository.AuditRepository, clk clock.Clock) *LicenseService {
	return &LicenseService{
		subRepo:   subRepo,
		auditRepo: auditRepo,
		clk:       clk,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Validate runs one license check for a device fingerprint. The returned
// error is non-nil only on storage failure, in which case the caller must
// fail closed and deny access.
func (s *LicenseService) Validate(contactKey, fingerprint, displayName string) (Decision, error) {
	lock := s.lockFor(contactKey)
	lock.Lock()
	defer lock.Unlock()

	sub, err := s.subRepo.FindByContactKey(contactKey)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DecisionNotFound, nil
	}
	if err != nil {
		return DecisionNotFound, fmt.Errorf("failed to load subscription: %w", err)
	}

	now := s.clk.Now()

	// Banning is terminal regardless of dates, so it is checked first.
	if sub.Status == model.StatusBanned {
		return DecisionBanned, nil
	}
	if sub.IsExpired(now) {
		return DecisionExpired, nil
	}

	if device := sub.FindDevice(fingerprint); device != nil {
		// Idempotent refresh, never consumes capacity
		if err := s.subRepo.TouchDevice(sub.ID, fingerprint, displayName, now); err != nil {
			return DecisionNotFound, fmt.Errorf("failed to refresh device: %w", err)
		}
		s.auditRepo.Append(model.AuditInfo, model.AuditActionDeviceRefresh, contactKey,
			fmt.Sprintf("device %s validated", shortFingerprint(fingerprint)))
		return DecisionGranted, nil
	}

	if len(sub.Devices) >= sub.MaxDevices {
		// Repeated attempts against a full registry indicate abuse
		s.auditRepo.Append(model.AuditSecurity, model.AuditActionDeviceLimitHit, contactKey,
			fmt.Sprintf("rejected device %s: %d/%d slots used", shortFingerprint(fingerprint), len(sub.Devices), sub.MaxDevices))
		return DecisionDeviceLimit, nil
	}

	binding := &model.DeviceBinding{
		SubscriptionID: sub.ID,
		Fingerprint:    fingerprint,
		DisplayName:    displayName,
		FirstBoundAt:   now,
		LastSeenAt:     now,
	}
	if err := s.subRepo.AddDevice(binding); err != nil {
		return DecisionNotFound, fmt.Errorf("failed to bind device: %w", err)
	}

	s.auditRepo.Append(model.AuditInfo, model.AuditActionDeviceBound, contactKey,
		fmt.Sprintf("device %s bound (%d/%d slots used)", shortFingerprint(fingerprint), len(sub.Devices)+1, sub.MaxDevices))
	log.Printf("🔑 New device bound for %s (%d/%d)", contactKey, len(sub.Devices)+1, sub.MaxDevices)
	return DecisionNewlyBound, nil
}

// ========== Administrative device management ==========

// RemoveDevice unbinds one fingerprint; a no-op if it was never bound
func (s *LicenseService) RemoveDevice(subscriptionID uuid.UUID, fingerprint string) error {
	sub, err := s.subRepo.FindByID(subscriptionID)
	if err != nil {
		return err
	}

	lock := s.lockFor(sub.ContactKey)
	lock.Lock()
	defer lock.Unlock()

	if err := s.subRepo.RemoveDevice(subscriptionID, fingerprint); err != nil {
		return err
	}
	s.auditRepo.Append(model.AuditInfo, model.AuditActionDeviceRemoved, sub.ContactKey,
		fmt.Sprintf("device %s removed by operator", shortFingerprint(fingerprint)))
	return nil
}

// ResetDevices clears the whole registry for a subscription
func (s *LicenseService) ResetDevices(subscriptionID uuid.UUID) error {
	sub, err := s.subRepo.FindByID(subscriptionID)
	if err != nil {
		return err
	}

	lock := s.lockFor(sub.ContactKey)
	lock.Lock()
	defer lock.Unlock()

	if err := s.subRepo.ResetDevices(subscriptionID); err != nil {
		return err
	}
	s.auditRepo.Append(model.AuditInfo, model.AuditActionDevicesReset, sub.ContactKey,
		fmt.Sprintf("device registry reset (%d bindings dropped)", len(sub.Devices)))
	return nil
}

// SetCapacity changes max_devices. Bindings above a lowered cap stay in
// place; the limit is enforced on future binds only, so oversubscribed
// accounts degrade gracefully instead of losing devices.
func (s *LicenseService) SetCapacity(subscriptionID uuid.UUID, maxDevices int) error {
	sub, err := s.subRepo.FindByID(subscriptionID)
	if err != nil {
		return err
	}

	lock := s.lockFor(sub.ContactKey)
	lock.Lock()
	defer lock.Unlock()

	if err := s.subRepo.SetCapacity(subscriptionID, maxDevices); err != nil {
		return err
	}
	s.auditRepo.Append(model.AuditInfo, model.AuditActionCapacityChange, sub.ContactKey,
		fmt.Sprintf("device capacity changed %d -> %d", sub.MaxDevices, maxDevices))
	return nil
}

// lockFor returns the mutex serializing operations on one subscription.
// Locks live for the process lifetime; the map is bounded by the number
// of distinct contact keys seen.
func (s *LicenseService) lockFor(contactKey string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	lock, ok := s.locks[contactKey]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[contactKey] = lock
	}
	return lock
}

// shortFingerprint truncates a fingerprint for audit readability
func shortFingerprint(fp string) string {
	if len(fp) <= 12 {
		return fp
	}
	return fp[:12] + "…"
}
