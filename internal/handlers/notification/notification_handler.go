// internal/handlers/notification/notification_handler.go
package notification

import (
	"context"
	"net/http"

	"fleetcare-service/internal/domain/notification"
	"fleetcare-service/internal/middleware"
	"fleetcare-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Feed is implemented by service/notification.Feed.
type Feed interface {
	Generate(req *notification.GenerateRequest) *notification.FeedResponse
	Current(ctx context.Context, ownerID, sessionID string) (*notification.FeedResponse, error)
	Refresh(ctx context.Context, ownerID, sessionID string) (*notification.FeedResponse, error)
	MarkAsRead(ctx context.Context, ownerID, sessionID, notificationID string) (*notification.FeedResponse, error)
	Count(ctx context.Context, ownerID, sessionID string) (int, error)
}

type NotificationHandler struct {
	feed Feed
}

func NewNotificationHandler(feed Feed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// GetNotifications returns the session's displayed notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	caller := middleware.MustGetAuth(c)

	result, err := h.feed.Current(c.Request.Context(), caller.UserID, caller.SessionID)
	if err != nil {
		response.FromError(c, "failed to get notifications", err)
		return
	}

	response.Success(c, http.StatusOK, "notifications retrieved", result)
}

// GetUnreadCount returns how many notifications the session still shows
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	caller := middleware.MustGetAuth(c)

	count, err := h.feed.Count(c.Request.Context(), caller.UserID, caller.SessionID)
	if err != nil {
		response.FromError(c, "failed to get count", err)
		return
	}

	response.Success(c, http.StatusOK, "count retrieved", gin.H{"count": count})
}

// Refresh regenerates the set from current fleet data. Previously read
// notifications reappear if still applicable.
func (h *NotificationHandler) Refresh(c *gin.Context) {
	caller := middleware.MustGetAuth(c)

	result, err := h.feed.Refresh(c.Request.Context(), caller.UserID, caller.SessionID)
	if err != nil {
		response.FromError(c, "failed to refresh notifications", err)
		return
	}

	response.Success(c, http.StatusOK, "notifications refreshed", result)
}

// MarkAsRead removes one notification from the session's set
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	caller := middleware.MustGetAuth(c)

	result, err := h.feed.MarkAsRead(c.Request.Context(), caller.UserID, caller.SessionID, c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to mark notification as read", err)
		return
	}

	response.Success(c, http.StatusOK, "notification marked as read", result)
}

// Generate runs the generator over the posted records. Nothing is stored.
func (h *NotificationHandler) Generate(c *gin.Context) {
	var req notification.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	response.Success(c, http.StatusOK, "notifications generated", h.feed.Generate(&req))
}
