package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"replyflow/internal/model"
	"replyflow/internal/repository"
	"replyflow/internal/service"
)

type MailHandler struct {
	ingestService *service.IngestService
	emailRepo     *repository.EmailRepository
	logger        *zap.Logger
}

func NewMailHandler(ingestService *service.IngestService, emailRepo *repository.EmailRepository, logger *zap.Logger) *MailHandler {
	return &MailHandler{ingestService: ingestService, emailRepo: emailRepo, logger: logger}
}

// Ingest accepts an inbound email snapshot, stores it and schedules
// evaluation. Returns 202: the reply pipeline runs asynchronously.
func (h *MailHandler) Ingest(c *gin.Context) {
	var email model.Email
	if err := c.ShouldBindJSON(&email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if email.From == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from is required"})
		return
	}

	stored, err := h.ingestService.Ingest(c.Request.Context(), currentUserID(c), email)
	if err != nil {
		h.logger.Error("Failed to ingest email", zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, stored)
}

func (h *MailHandler) List(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))

	emails, err := h.emailRepo.ListByUser(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		h.logger.Error("Failed to list emails", zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"emails": emails})
}
