package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"replyflow/internal/repository"
)

const defaultPageSize = 50

type HistoryHandler struct {
	historyRepo *repository.HistoryRepository
	logger      *zap.Logger
}

func NewHistoryHandler(historyRepo *repository.HistoryRepository, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{historyRepo: historyRepo, logger: logger}
}

func (h *HistoryHandler) List(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))

	entries, err := h.historyRepo.ListByUser(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		h.logger.Error("Failed to list history", zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultPageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 500 {
		return defaultPageSize
	}
	return n
}
