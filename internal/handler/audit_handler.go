package handler

import (
	"net/http"

	"github.com/ducnx/licgate/internal/model"
	"github.com/ducnx/licgate/internal/repository"
	"github.com/gin-gonic/gin"
)

// AuditHandler exposes the append-only audit log
type AuditHandler struct {
	auditRepo *repository.AuditRepository
}

func NewAuditHandler(auditRepo *repository.AuditRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

// List godoc
// @Summary List audit log entries
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param category query string false "Filter: info or security"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} model.AuditLog
// @Router /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	var req model.AuditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	entries, err := h.auditRepo.List(req.Category, limit, req.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to list audit entries"})
		return
	}

	c.JSON(http.StatusOK, entries)
}
