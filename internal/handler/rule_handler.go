package handler

import (
	"net/http"

	"github.com/ducnx/licgate/internal/model"
	"github.com/ducnx/licgate/internal/repository"
	"github.com/gin-gonic/gin"
)

// RuleHandler handles the notification settings endpoints
type RuleHandler struct {
	ruleRepo *repository.RuleRepository
}

func NewRuleHandler(ruleRepo *repository.RuleRepository) *RuleHandler {
	return &RuleHandler{ruleRepo: ruleRepo}
}

// Get godoc
// @Summary Get the notification rule
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.NotificationRule
// @Router /settings/notifications [get]
func (h *RuleHandler) Get(c *gin.Context) {
	rule, err := h.ruleRepo.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to load notification rule"})
		return
	}

	c.JSON(http.StatusOK, rule)
}

// Update godoc
// @Summary Update the notification rule
// @Description Idempotent upsert of the singleton rule row.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.UpdateRuleRequest true "Fields to update"
// @Success 200 {object} model.NotificationRule
// @Failure 400 {object} model.ErrorResponse
// @Router /settings/notifications [put]
func (h *RuleHandler) Update(c *gin.Context) {
	var req model.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	rule, err := h.ruleRepo.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to load notification rule"})
		return
	}

	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.ReminderTemplate != nil {
		rule.ReminderTemplate = *req.ReminderTemplate
	}
	if req.ExpiredTemplate != nil {
		rule.ExpiredTemplate = *req.ExpiredTemplate
	}
	if req.EmailFallback != nil {
		rule.EmailFallback = *req.EmailFallback
	}

	if err := h.ruleRepo.Upsert(rule); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to save notification rule"})
		return
	}

	c.JSON(http.StatusOK, rule)
}
