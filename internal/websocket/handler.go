// internal/websocket/handler.go
package websocket

import (
	"context"
	"sync"

	wstypes "fleetcare-service/internal/domain/websocket"
)

// MessageHandler serves the client events it lists in SupportedEvents.
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error
	SupportedEvents() []wstypes.EventType
}

// HandlerRegistry routes client events to handlers. A later registration for
// the same event replaces the earlier one.
type HandlerRegistry struct {
	mu     sync.RWMutex
	routes map[wstypes.EventType]MessageHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{routes: make(map[wstypes.EventType]MessageHandler)}
}

func (r *HandlerRegistry) Register(handler MessageHandler) {
	events := handler.SupportedEvents()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range events {
		r.routes[ev] = handler
	}
}

// Dispatch runs the handler for msg.Type. It reports false when no handler
// is registered for the event.
func (r *HandlerRegistry) Dispatch(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	r.mu.RLock()
	handler, ok := r.routes[msg.Type]
	r.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}
