package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/application/usecase"
)

// CommandHandler covers command submission and read-back (§6).
type CommandHandler struct {
	submit *usecase.SubmitCommandUseCase
	query  *usecase.CommandQueryUseCase
	logger *zap.Logger
}

func NewCommandHandler(submit *usecase.SubmitCommandUseCase, query *usecase.CommandQueryUseCase, logger *zap.Logger) *CommandHandler {
	return &CommandHandler{submit: submit, query: query, logger: logger}
}

type submitCommandRequest struct {
	FleetID     string `json:"fleet_id" binding:"required"`
	DeviceID    string `json:"device_id" binding:"required"`
	Command     string `json:"command" binding:"required"`
	InitiatedBy string `json:"initiated_by"`
}

// SubmitCommand handles POST /api/v1/commands.
func (h *CommandHandler) SubmitCommand(c *gin.Context) {
	var req submitCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	env, err := h.submit.Execute(c.Request.Context(), usecase.SubmitCommandInput{
		FleetID:     req.FleetID,
		DeviceID:    req.DeviceID,
		Command:     req.Command,
		InitiatedBy: req.InitiatedBy,
	})
	if err != nil {
		h.logger.Warn("failed to submit command", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, env)
}

// ListCommands handles GET /api/v1/commands?device_id=.
func (h *CommandHandler) ListCommands(c *gin.Context) {
	envelopes, err := h.query.List(c.Request.Context(), c.Query("device_id"))
	if err != nil {
		h.logger.Error("failed to list commands", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list commands"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"commands": envelopes})
}

// GetCommand handles GET /api/v1/commands/{id}.
func (h *CommandHandler) GetCommand(c *gin.Context) {
	detail, err := h.query.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to fetch command", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch command"})
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "command not found"})
		return
	}
	c.JSON(http.StatusOK, detail)
}
