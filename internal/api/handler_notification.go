package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"replyflow/internal/repository"
)

type NotificationHandler struct {
	notificationRepo *repository.NotificationRepository
	logger           *zap.Logger
}

func NewNotificationHandler(notificationRepo *repository.NotificationRepository, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notificationRepo: notificationRepo, logger: logger}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID := currentUserID(c)
	limit := parseLimit(c.Query("limit"))

	notifications, err := h.notificationRepo.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Failed to list notifications", zap.Error(err))
		writeError(c, err)
		return
	}

	unread, err := h.notificationRepo.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to count unread notifications", zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unreadCount":   unread,
	})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	err := h.notificationRepo.MarkRead(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notificationRepo.MarkAllRead(c.Request.Context(), currentUserID(c)); err != nil {
		h.logger.Error("Failed to mark notifications read", zap.Error(err))
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	err := h.notificationRepo.Delete(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) ClearAll(c *gin.Context) {
	if err := h.notificationRepo.ClearAll(c.Request.Context(), currentUserID(c)); err != nil {
		h.logger.Error("Failed to clear notifications", zap.Error(err))
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
