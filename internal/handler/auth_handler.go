package handler

import (
	"net/http"
	"strings"

	"github.com/ducnx/licgate/internal/model"
	"github.com/ducnx/licgate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthHandler handles operator authentication endpoints
type AuthHandler struct {
	adminService *service.AdminService
}

func NewAuthHandler(adminService *service.AdminService) *AuthHandler {
	return &AuthHandler{adminService: adminService}
}

// Login godoc
// @Summary Operator login
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.LoginRequest true "Credentials"
// @Success 200 {object} model.LoginResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	resp, err := h.adminService.Login(req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout godoc
// @Summary Operator logout
// @Description Invalidate the current token
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SuccessResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Token required"})
		return
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Invalid token format"})
		return
	}
	tokenString := parts[1]

	if err := h.adminService.Logout(tokenString); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Logged out successfully"})
}

// GetProfile godoc
// @Summary Get the current operator profile
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.OperatorResponse
// @Router /auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	operatorID := c.MustGet("operator_id").(uuid.UUID)

	profile, err := h.adminService.GetProfile(operatorID)
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// RegisterDevice godoc
// @Summary Register an operator device for pairing alerts
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.RegisterDeviceRequest true "Device token"
// @Success 200 {object} model.SuccessResponse
// @Router /admin/devices [post]
func (h *AuthHandler) RegisterDevice(c *gin.Context) {
	operatorID := c.MustGet("operator_id").(uuid.UUID)

	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	if err := h.adminService.RegisterDevice(operatorID, req); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to register device"})
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Device registered"})
}
