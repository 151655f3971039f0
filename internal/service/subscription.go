package service

import (
	"errors"

	"github.com/ducnx/licgate/internal/model"
	"github.com/ducnx/licgate/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionService handles administrative subscription management
type SubscriptionService struct {
	subRepo *repository.SubscriptionRepository
}

func NewSubscriptionService(subRepo *repository.SubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{subRepo: subRepo}
}

// Create registers a new subscription
func (s *SubscriptionService) Create(req model.CreateSubscriptionRequest) (*model.Subscription, error) {
	if _, err := s.subRepo.FindByContactKey(req.ContactKey); err == nil {
		return nil, errors.New("subscription already exists for this contact key")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub := &model.Subscription{
		ContactKey: req.ContactKey,
		Status:     model.StatusTrial,
		Plan:       "basic",
		ExpiresAt:  req.ExpiresAt,
		MaxDevices: model.DefaultMaxDevices,
		Phone:      req.Phone,
	}
	if req.Status != "" {
		sub.Status = model.SubscriptionStatus(req.Status)
	}
	if req.Plan != "" {
		sub.Plan = req.Plan
	}
	if req.MaxDevices > 0 {
		sub.MaxDevices = req.MaxDevices
	}

	if err := s.subRepo.Create(sub); err != nil {
		return nil, errors.New("failed to create subscription")
	}
	return sub, nil
}

// Get returns one subscription with its device registry
func (s *SubscriptionService) Get(id uuid.UUID) (*model.Subscription, error) {
	return s.subRepo.FindByID(id)
}

// List returns subscriptions matching an optional filter
func (s *SubscriptionService) List(req model.SubscriptionListRequest) ([]model.Subscription, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.subRepo.List(req.Query, limit, req.Offset)
}

// Update applies a partial update to a subscription
func (s *SubscriptionService) Update(id uuid.UUID, req model.UpdateSubscriptionRequest) (*model.Subscription, error) {
	updates := map[string]interface{}{}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if req.Plan != "" {
		updates["plan"] = req.Plan
	}
	if req.ExpiresAt != nil {
		updates["expires_at"] = req.ExpiresAt
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}

	if len(updates) > 0 {
		if err := s.subRepo.Update(id, updates); err != nil {
			return nil, err
		}
	}
	return s.subRepo.FindByID(id)
}

// Delete removes a subscription and its bindings
func (s *SubscriptionService) Delete(id uuid.UUID) error {
	return s.subRepo.Delete(id)
}
