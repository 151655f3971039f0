package service

import (
	"context"
	"errors"
	"time"

	"github.com/ducnx/licgate/internal/model"
	"github.com/ducnx/licgate/internal/repository"
	"github.com/ducnx/licgate/pkg/auth"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// AdminService handles operator authentication for the management surface
type AdminService struct {
	operatorRepo *repository.OperatorRepository
	jwtManager   *auth.JWTManager
	rdb          *redis.Client
}

func NewAdminService(operatorRepo *repository.OperatorRepository, jwtManager *auth.JWTManager, rdb *redis.Client) *AdminService {
	return &AdminService{
		operatorRepo: operatorRepo,
		jwtManager:   jwtManager,
		rdb:          rdb,
	}
}

// Login verifies operator credentials and issues a JWT token
func (s *AdminService) Login(req model.LoginRequest) (*model.LoginResponse, error) {
	op, err := s.operatorRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	token, err := s.jwtManager.GenerateToken(op.ID, op.Email, op.Name)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &model.LoginResponse{
		Token:    token,
		Operator: op.ToResponse(),
	}, nil
}

// Logout invalidates the current token via the Redis blacklist
func (s *AdminService) Logout(tokenString string) error {
	claims, err := s.jwtManager.ValidateToken(tokenString)
	if err != nil {
		return err
	}

	expiresIn := time.Until(claims.ExpiresAt.Time)
	if expiresIn <= 0 {
		return nil
	}

	return s.rdb.Set(context.Background(), "blacklist:"+tokenString, "revoked", expiresIn).Err()
}

// GetProfile returns the operator's own account
func (s *AdminService) GetProfile(operatorID uuid.UUID) (*model.OperatorResponse, error) {
	op, err := s.operatorRepo.FindByID(operatorID)
	if err != nil {
		return nil, errors.New("operator not found")
	}
	resp := op.ToResponse()
	return &resp, nil
}

// RegisterDevice stores an operator device token for pairing alerts
func (s *AdminService) RegisterDevice(operatorID uuid.UUID, req model.RegisterDeviceRequest) error {
	return s.operatorRepo.AddDevice(operatorID, req.FCMToken, req.DeviceType)
}
