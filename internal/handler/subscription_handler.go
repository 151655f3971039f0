package handler

import (
	"net/http"

	"github.com/ducnx/licgate/internal/model"
	"github.com/ducnx/licgate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SubscriptionHandler handles administrative subscription management
type SubscriptionHandler struct {
	subService     *service.SubscriptionService
	licenseService *service.LicenseService
}

func NewSubscriptionHandler(subService *service.SubscriptionService, licenseService *service.LicenseService) *SubscriptionHandler {
	return &SubscriptionHandler{subService: subService, licenseService: licenseService}
}

// List godoc
// @Summary List subscriptions
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param q query string false "Filter by contact key or plan"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} model.Subscription
// @Router /subscriptions [get]
func (h *SubscriptionHandler) List(c *gin.Context) {
	var req model.SubscriptionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	subs, err := h.subService.List(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to list subscriptions"})
		return
	}

	c.JSON(http.StatusOK, subs)
}

// Create godoc
// @Summary Create a subscription
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateSubscriptionRequest true "New subscription"
// @Success 201 {object} model.Subscription
// @Failure 400 {object} model.ErrorResponse
// @Router /subscriptions [post]
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req model.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	sub, err := h.subService.Create(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// Get godoc
// @Summary Get a subscription with its device registry
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {object} model.Subscription
// @Router /subscriptions/{id} [get]
func (h *SubscriptionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	sub, err := h.subService.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Subscription not found"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// Update godoc
// @Summary Update a subscription
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Param body body model.UpdateSubscriptionRequest true "Fields to update"
// @Success 200 {object} model.Subscription
// @Router /subscriptions/{id} [put]
func (h *SubscriptionHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	var req model.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	sub, err := h.subService.Update(id, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// Delete godoc
// @Summary Delete a subscription
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {object} model.SuccessResponse
// @Router /subscriptions/{id} [delete]
func (h *SubscriptionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	if err := h.subService.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to delete subscription"})
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Subscription deleted"})
}

// ========== Device registry management ==========

// RemoveDevice godoc
// @Summary Remove one device binding
// @Description Idempotent: removing a fingerprint that is not bound is a no-op.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Param body body model.RemoveDeviceRequest true "Fingerprint to remove"
// @Success 200 {object} model.SuccessResponse
// @Router /subscriptions/{id}/devices/remove [post]
func (h *SubscriptionHandler) RemoveDevice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	var req model.RemoveDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	if err := h.licenseService.RemoveDevice(id, req.Fingerprint); err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Subscription not found"})
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Device removed"})
}

// ResetDevices godoc
// @Summary Clear the whole device registry
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {object} model.SuccessResponse
// @Router /subscriptions/{id}/devices/reset [post]
func (h *SubscriptionHandler) ResetDevices(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	if err := h.licenseService.ResetDevices(id); err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Subscription not found"})
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Device registry reset"})
}

// SetCapacity godoc
// @Summary Change the device capacity
// @Description Lowering the cap below the current binding count keeps existing bindings; the limit applies to future binds only.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Param body body model.SetCapacityRequest true "New capacity"
// @Success 200 {object} model.SuccessResponse
// @Router /subscriptions/{id}/capacity [put]
func (h *SubscriptionHandler) SetCapacity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid subscription ID"})
		return
	}

	var req model.SetCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	if err := h.licenseService.SetCapacity(id, req.MaxDevices); err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Subscription not found"})
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Capacity updated"})
}
