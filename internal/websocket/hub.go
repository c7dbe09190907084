// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "fleetcare-service/internal/domain/websocket"
	"fleetcare-service/internal/pkg/jwt"

	"go.uber.org/zap"
)

// TokenValidator checks an access token against the signature, the
// blacklist and the session store.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

type Hub struct {
	// Registered clients by user ID
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	Register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	handlerRegistry *HandlerRegistry

	validator TokenValidator
	logger    *zap.Logger
}

// BroadcastMessage targets every client subscribed to Channel. UserIDs nil
// means all users; a non-empty SessionID narrows delivery to that session.
type BroadcastMessage struct {
	UserIDs   []string
	SessionID string
	Channel   wstypes.ChannelType
	Message   *wstypes.WSMessage
}

func NewHub(validator TokenValidator, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		Register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		done:            make(chan struct{}),
		handlerRegistry: NewHandlerRegistry(),
		validator:       validator,
		logger:          logger,
	}
}

// SetValidator replaces the token validator. Call it before Run.
func (h *Hub) SetValidator(v TokenValidator) {
	h.validator = v
}

// AuthenticateClient validates the token a socket connected with.
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims, err := h.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return &ClientAuth{
		UserID:    claims.UserID,
		SessionID: claims.ID,
		Email:     claims.Email,
		Device:    claims.Device,
	}, nil
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage processes a message from a client using registered handlers
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	return h.handlerRegistry.Dispatch(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	total := h.totalClients()
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.String("user_id", client.userID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", total),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"user_id":    client.userID,
		"session_id": client.sessionID,
		"device":     client.device,
		"channels":   client.Channels(),
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.userID)
			}

			h.logger.Info("websocket client disconnected",
				zap.String("user_id", client.userID),
				zap.String("session_id", client.sessionID),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

// requestUnregister hands the client back to the run loop without blocking
// once the hub has stopped.
func (h *Hub) requestUnregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	deliver := func(clients map[*Client]bool) {
		for client := range clients {
			if msg.SessionID != "" && client.sessionID != msg.SessionID {
				continue
			}
			if client.IsSubscribed(msg.Channel) {
				client.SendMessage(msg.Message)
			}
		}
	}

	if msg.UserIDs == nil {
		for _, clients := range h.clients {
			deliver(clients)
		}
		return
	}
	for _, userID := range msg.UserIDs {
		if clients, ok := h.clients[userID]; ok {
			deliver(clients)
		}
	}
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

func (h *Hub) GetConnectedClients(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

// Public methods for broadcasting

// BroadcastNotificationCount sends the unread count to one session's sockets.
func (h *Hub) BroadcastNotificationCount(userID, sessionID string, count int) {
	h.enqueue(&BroadcastMessage{
		UserIDs:   []string{userID},
		SessionID: sessionID,
		Channel:   wstypes.ChannelNotifications,
		Message:   wstypes.NewMessage(wstypes.EventTypeNotificationCount, wstypes.NotificationCountData{Count: count}),
	})
}

// BroadcastSessionEvent tells every socket of the user about a session change.
func (h *Hub) BroadcastSessionEvent(userID string, eventType wstypes.EventType, data wstypes.SessionEventData) {
	h.enqueue(&BroadcastMessage{
		UserIDs: []string{userID},
		Channel: wstypes.ChannelSession,
		Message: wstypes.NewMessage(eventType, data),
	})
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID string) bool {
	return h.GetConnectedClients(userID) > 0
}

// DisconnectSession closes every socket opened with the given session.
func (h *Hub) DisconnectSession(userID, sessionID, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[userID]
	if !ok {
		return
	}

	disconnectMsg := wstypes.NewMessage(wstypes.EventTypeDisconnected, map[string]interface{}{
		"reason": reason,
	})
	for client := range clients {
		if client.sessionID != sessionID {
			continue
		}
		client.SendMessage(disconnectMsg)
		client.Close()
		delete(clients, client)
	}
	if len(clients) == 0 {
		delete(h.clients, userID)
	}

	h.logger.Info("websocket session disconnected",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
		zap.String("reason", reason),
	)
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
	h.clients = make(map[string]map[*Client]bool)
}
