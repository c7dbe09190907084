// internal/app/router.go
package app

import (
	"context"
	"net/http"
	"time"

	authHandler "fleetcare-service/internal/handlers/auth"
	fleetHandler "fleetcare-service/internal/handlers/fleet"
	notifyHandler "fleetcare-service/internal/handlers/notification"
	recordHandler "fleetcare-service/internal/handlers/servicerecord"
	wsHandler "fleetcare-service/internal/handlers/websocket"
	"fleetcare-service/internal/middleware"
	"fleetcare-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler          *authHandler.AuthHandler
	FleetHandler         *fleetHandler.FleetHandler
	ServiceRecordHandler *recordHandler.ServiceRecordHandler
	NotifHandler         *notifyHandler.NotificationHandler
	WSHandler            *wsHandler.WebSocketHandler
	AuthMiddleware       *middleware.AuthMiddleware

	// Health reports whether the backing stores are reachable.
	Health func(ctx context.Context) error
	// FilesDir is served under /files when objects are stored on local disk.
	FilesDir string
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		if h.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := h.Health(ctx); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				response.Error(c, http.StatusServiceUnavailable, "unhealthy", err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)
	api.GET("/ws/stats", h.AuthMiddleware.Auth(), h.WSHandler.GetStats)

	// ==================== Stored files ====================
	if h.FilesDir != "" {
		r.Static("/files", h.FilesDir)
	}

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/signup", h.AuthHandler.SignUp)
		authPublic.POST("/signin", h.AuthHandler.SignIn)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/signout", h.AuthHandler.SignOut)
		authProtected.GET("/session", h.AuthHandler.GetSession)
		authProtected.GET("/sessions", h.AuthHandler.ListSessions)
	}

	// ==================== Fleet ====================
	protected := api.Group("")
	protected.Use(h.AuthMiddleware.Auth())

	protected.GET("/fleet", h.FleetHandler.GetFleet)

	vehicles := protected.Group("/vehicles")
	{
		vehicles.GET("", h.FleetHandler.ListVehicles)
		vehicles.POST("", h.FleetHandler.CreateVehicle)
		vehicles.GET("/:id", h.FleetHandler.GetVehicle)
		vehicles.PUT("/:id", h.FleetHandler.UpdateVehicle)
		vehicles.DELETE("/:id", h.FleetHandler.DeleteVehicle)
	}

	devices := protected.Group("/devices")
	{
		devices.GET("", h.FleetHandler.ListDevices)
		devices.POST("", h.FleetHandler.CreateDevice)
		devices.GET("/:id", h.FleetHandler.GetDevice)
		devices.PUT("/:id", h.FleetHandler.UpdateDevice)
		devices.DELETE("/:id", h.FleetHandler.DeleteDevice)
	}

	// ==================== Service Records ====================
	records := protected.Group("/service-records")
	{
		records.GET("", h.ServiceRecordHandler.ListRecords)
		records.POST("", h.ServiceRecordHandler.CreateRecord)
		records.GET("/:id", h.ServiceRecordHandler.GetRecord)
		records.PUT("/:id", h.ServiceRecordHandler.UpdateRecord)
		records.DELETE("/:id", h.ServiceRecordHandler.DeleteRecord)
	}

	// ==================== Notifications ====================
	// Generate is a pure computation over the posted records.
	api.POST("/notifications/generate", h.NotifHandler.Generate)

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.NotifHandler.GetNotifications)
		notifications.GET("/count", h.NotifHandler.GetUnreadCount)
		notifications.POST("/refresh", h.NotifHandler.Refresh)
		notifications.PUT("/:id/read", h.NotifHandler.MarkAsRead)
	}
}
