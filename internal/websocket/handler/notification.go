// internal/websocket/handler/notification.go
package handler

import (
	"context"
	"errors"
	"fmt"

	"fleetcare-service/internal/domain/notification"
	wstypes "fleetcare-service/internal/domain/websocket"
	xerrors "fleetcare-service/internal/pkg/errors"
	ws "fleetcare-service/internal/websocket"
)

// NotificationFeed is the session notification state, implemented by
// service/notification.Feed.
type NotificationFeed interface {
	Current(ctx context.Context, ownerID, sessionID string) (*notification.FeedResponse, error)
	Refresh(ctx context.Context, ownerID, sessionID string) (*notification.FeedResponse, error)
	MarkAsRead(ctx context.Context, ownerID, sessionID, notificationID string) (*notification.FeedResponse, error)
	Count(ctx context.Context, ownerID, sessionID string) (int, error)
}

type NotificationHandler struct {
	feed NotificationFeed
}

func NewNotificationHandler(feed NotificationFeed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// SupportedEvents returns events this handler supports
func (h *NotificationHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeNotificationList,
		wstypes.EventTypeNotificationRead,
		wstypes.EventTypeNotificationRefresh,
		wstypes.EventTypeNotificationCount,
	}
}

// HandleMessage processes notification-related messages
func (h *NotificationHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypeNotificationList:
		return h.handleList(ctx, client)

	case wstypes.EventTypeNotificationRead:
		return h.handleMarkAsRead(ctx, client, msg)

	case wstypes.EventTypeNotificationRefresh:
		return h.handleRefresh(ctx, client)

	case wstypes.EventTypeNotificationCount:
		return h.handleCount(ctx, client)

	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

func (h *NotificationHandler) handleList(ctx context.Context, client *ws.Client) error {
	feed, err := h.feed.Current(ctx, client.UserID(), client.SessionID())
	if err != nil {
		client.SendError("list_failed", "Failed to get notifications", "")
		return err
	}
	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationList, feed))
	return nil
}

// handleMarkAsRead removes one notification; the count push follows from
// the feed itself.
func (h *NotificationHandler) handleMarkAsRead(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var req wstypes.NotificationReadData
	if err := ws.DecodeData(msg.Data, &req); err != nil || req.NotificationID == "" {
		client.SendError("invalid_request", "Invalid mark as read request", "notification_id is required")
		return xerrors.ErrInvalidInput
	}

	feed, err := h.feed.MarkAsRead(ctx, client.UserID(), client.SessionID(), req.NotificationID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			client.SendError("not_found", "Notification not found", req.NotificationID)
		} else {
			client.SendError("mark_read_failed", "Failed to mark notification as read", "")
		}
		return err
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationRead, map[string]interface{}{
		"notification_id": req.NotificationID,
		"success":         true,
		"count":           feed.Count,
	}))
	return nil
}

func (h *NotificationHandler) handleRefresh(ctx context.Context, client *ws.Client) error {
	feed, err := h.feed.Refresh(ctx, client.UserID(), client.SessionID())
	if err != nil {
		client.SendError("refresh_failed", "Failed to refresh notifications", "")
		return err
	}
	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationList, feed))
	return nil
}

func (h *NotificationHandler) handleCount(ctx context.Context, client *ws.Client) error {
	count, err := h.feed.Count(ctx, client.UserID(), client.SessionID())
	if err != nil {
		client.SendError("count_failed", "Failed to get notification count", "")
		return err
	}
	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationCount, wstypes.NotificationCountData{Count: count}))
	return nil
}
