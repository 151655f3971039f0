package handler

import (
	"net/http"

	"github.com/ducnx/licgate/internal/model"
	"github.com/ducnx/licgate/internal/service"
	"github.com/gin-gonic/gin"
)

// ValidateHandler handles the client-facing license endpoints
type ValidateHandler struct {
	licenseService *service.LicenseService
	heartbeat      *service.HeartbeatAggregator
}

func NewValidateHandler(licenseService *service.LicenseService, heartbeat *service.HeartbeatAggregator) *ValidateHandler {
	return &ValidateHandler{licenseService: licenseService, heartbeat: heartbeat}
}

// Validate godoc
// @Summary Validate a license for a device
// @Description Check subscription state and bind/refresh the device fingerprint. Clients must treat any status other than "active" as denial.
// @Tags License
// @Accept json
// @Produce json
// @Param body body model.ValidateRequest true "Validation request"
// @Success 200 {object} model.ValidateResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 503 {object} model.ValidateResponse
// @Router /validate [post]
func (h *ValidateHandler) Validate(c *gin.Context) {
	var req model.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	decision, err := h.licenseService.Validate(req.ContactKey, req.Fingerprint, req.DisplayName)
	if err != nil {
		// Storage failure: fail closed, never grant
		c.JSON(http.StatusServiceUnavailable, model.ValidateResponse{
			Status:  model.ValidationError,
			Message: "validation temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, decisionResponse(decision))
}

// Heartbeat godoc
// @Summary Record a client liveness ping
// @Description Pings are buffered in memory and flushed to storage in bulk on a fixed interval.
// @Tags License
// @Accept json
// @Produce json
// @Param body body model.HeartbeatRequest true "Heartbeat request"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /heartbeat [post]
func (h *ValidateHandler) Heartbeat(c *gin.Context) {
	var req model.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	h.heartbeat.Record(req.ContactKey)
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "ok"})
}

// decisionResponse maps a validation decision onto the stable status
// vocabulary exposed to client installations
func decisionResponse(decision service.Decision) model.ValidateResponse {
	switch decision {
	case service.DecisionGranted:
		return model.ValidateResponse{Status: model.ValidationActive, Message: "license valid"}
	case service.DecisionNewlyBound:
		return model.ValidateResponse{Status: model.ValidationActive, Message: "license valid, device registered"}
	case service.DecisionBanned:
		return model.ValidateResponse{Status: model.ValidationBanned, Message: "subscription is banned"}
	case service.DecisionExpired:
		return model.ValidateResponse{Status: model.ValidationExpired, Message: "subscription has expired"}
	case service.DecisionDeviceLimit:
		return model.ValidateResponse{Status: model.ValidationDenied, Message: "device limit reached"}
	case service.DecisionNotFound:
		return model.ValidateResponse{Status: model.ValidationDenied, Message: "no subscription found for this contact key"}
	default:
		return model.ValidateResponse{Status: model.ValidationError, Message: "unknown validation result"}
	}
}
