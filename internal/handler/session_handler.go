package handler

import (
	"net/http"
	"time"

	"github.com/ducnx/licgate/internal/chat"
	"github.com/ducnx/licgate/internal/model"
	"github.com/ducnx/licgate/internal/repository"
	"github.com/ducnx/licgate/internal/service"
	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the messaging session to the management surface
type SessionHandler struct {
	session      *chat.Session
	heartbeat    *service.HeartbeatAggregator
	auditRepo    *repository.AuditRepository
	activeWindow time.Duration
}

func NewSessionHandler(session *chat.Session, heartbeat *service.HeartbeatAggregator, auditRepo *repository.AuditRepository, activeWindow time.Duration) *SessionHandler {
	return &SessionHandler{
		session:      session,
		heartbeat:    heartbeat,
		auditRepo:    auditRepo,
		activeWindow: activeWindow,
	}
}

// Status godoc
// @Summary Get the messaging session status
// @Description Returns the connection state; while pairing, includes the scannable challenge image URL. Credentials are never exposed.
// @Tags Messaging
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SessionStatusResponse
// @Router /messaging/status [get]
func (h *SessionHandler) Status(c *gin.Context) {
	status := h.session.StatusSnapshot()
	c.JSON(http.StatusOK, model.SessionStatusResponse{
		State:        string(status.State),
		ChallengeURL: status.ChallengeURL,
	})
}

// Logout godoc
// @Summary Log the messaging session out of the chat network
// @Description Terminal: stored credentials are discarded and a fresh pairing is required.
// @Tags Messaging
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SuccessResponse
// @Router /messaging/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.session.Logout(); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to log out session", Message: err.Error()})
		return
	}

	h.auditRepo.Append(model.AuditInfo, model.AuditActionSessionLogout, "", "messaging session logout requested by operator")
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Session logout requested"})
}

// Stats godoc
// @Summary Operational stats for the dashboard
// @Tags Messaging
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.StatsResponse
// @Router /stats [get]
func (h *SessionHandler) Stats(c *gin.Context) {
	status := h.session.StatusSnapshot()
	c.JSON(http.StatusOK, model.StatsResponse{
		ActiveClients: h.heartbeat.ActiveCount(h.activeWindow),
		SessionState:  string(status.State),
	})
}
