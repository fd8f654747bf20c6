package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"replyflow/internal/model"
	"replyflow/internal/repository"
)

type SettingsHandler struct {
	settingsRepo *repository.SettingsRepository
	logger       *zap.Logger
}

func NewSettingsHandler(settingsRepo *repository.SettingsRepository, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settingsRepo: settingsRepo, logger: logger}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settingsRepo.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logger.Error("Failed to load settings", zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *SettingsHandler) Put(c *gin.Context) {
	var settings model.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	settings.UserID = currentUserID(c)

	if err := settings.Validate(); err != nil {
		writeError(c, err)
		return
	}

	if err := h.settingsRepo.Put(c.Request.Context(), &settings); err != nil {
		h.logger.Error("Failed to save settings", zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}
