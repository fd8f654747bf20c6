package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Auth          *AuthHandler
	Rules         *RuleHandler
	Mail          *MailHandler
	History       *HistoryHandler
	Notifications *NotificationHandler
	Settings      *SettingsHandler
}

// NewRouter wires all routes. Everything under /api requires a valid token.
func NewRouter(h Handlers, db *pgxpool.Pool, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(MetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/register", h.Auth.Register)
	r.POST("/login", h.Auth.Login)

	authed := r.Group("/api", AuthMiddleware(jwtSecret))
	{
		authed.GET("/rules", h.Rules.List)
		authed.POST("/rules", h.Rules.Create)
		authed.PATCH("/rules/:id", h.Rules.Update)
		authed.DELETE("/rules/:id", h.Rules.Delete)
		authed.POST("/rules/:id/toggle", h.Rules.Toggle)

		authed.POST("/emails/ingest", h.Mail.Ingest)
		authed.GET("/emails", h.Mail.List)

		authed.GET("/history", h.History.List)

		authed.GET("/notifications", h.Notifications.List)
		authed.POST("/notifications/read-all", h.Notifications.MarkAllRead)
		authed.POST("/notifications/:id/read", h.Notifications.MarkRead)
		authed.DELETE("/notifications/:id", h.Notifications.Delete)
		authed.DELETE("/notifications", h.Notifications.ClearAll)

		authed.GET("/settings", h.Settings.Get)
		authed.PUT("/settings", h.Settings.Put)
	}

	return r
}
