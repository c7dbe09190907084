// internal/service/notification/feed.go
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleetcare-service/internal/domain/fleet"
	"fleetcare-service/internal/domain/notification"
	xerrors "fleetcare-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// FleetSource loads the records notifications are derived from.
type FleetSource interface {
	FetchDevicesAndVehicles(ctx context.Context, ownerID string) (*fleet.Snapshot, error)
}

// CountPusher delivers the unread count to the sockets of one session.
type CountPusher interface {
	BroadcastNotificationCount(userID, sessionID string, count int)
}

type feedState struct {
	ownerID     string
	items       []notification.Notification
	generatedAt time.Time
	expiresAt   time.Time
}

// Feed keeps the displayed notification set of every signed-in session.
// Read state lives here only; it is lost on refresh, sign-out, session
// expiry or restart.
type Feed struct {
	generator  *Generator
	source     FleetSource
	pusher     CountPusher
	logger     *zap.Logger
	now        func() time.Time
	sessionTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*feedState
}

// NewFeed builds a feed whose per-session state is evicted sessionTTL after
// the session is first seen. Tokens never outlive their TTL, so neither does
// the state.
func NewFeed(generator *Generator, source FleetSource, pusher CountPusher, sessionTTL time.Duration, logger *zap.Logger) *Feed {
	return &Feed{
		generator:  generator,
		source:     source,
		pusher:     pusher,
		logger:     logger,
		now:        time.Now,
		sessionTTL: sessionTTL,
		sessions:   make(map[string]*feedState),
	}
}

// Generate runs the generator over caller-supplied records without touching
// any session.
func (f *Feed) Generate(req *notification.GenerateRequest) *notification.FeedResponse {
	now := f.now()
	if req.Now != nil {
		now = *req.Now
	}
	return notification.NewFeedResponse(f.generator.Generate(req.Vehicles, req.Devices, now), now)
}

// Current returns the session's displayed set, generating it on first use.
func (f *Feed) Current(ctx context.Context, ownerID, sessionID string) (*notification.FeedResponse, error) {
	f.mu.Lock()
	f.evictExpiredLocked(f.now())
	st, ok := f.sessions[sessionID]
	if ok && st.ownerID == ownerID {
		resp := snapshot(st)
		f.mu.Unlock()
		return resp, nil
	}
	f.mu.Unlock()

	return f.Refresh(ctx, ownerID, sessionID)
}

// Refresh regenerates the session's set from the owner's current records and
// discards everything marked as read.
func (f *Feed) Refresh(ctx context.Context, ownerID, sessionID string) (*notification.FeedResponse, error) {
	snap, err := f.source.FetchDevicesAndVehicles(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fleet: %w", err)
	}

	now := f.now()
	st := &feedState{
		ownerID:     ownerID,
		items:       f.generator.Generate(snap.Vehicles, snap.Devices, now),
		generatedAt: now,
		expiresAt:   now.Add(f.sessionTTL),
	}

	f.mu.Lock()
	f.evictExpiredLocked(now)
	// a refresh keeps the session's original expiry
	if prev, ok := f.sessions[sessionID]; ok && prev.ownerID == ownerID {
		st.expiresAt = prev.expiresAt
	}
	f.sessions[sessionID] = st
	resp := snapshot(st)
	f.mu.Unlock()

	f.logger.Debug("notifications refreshed",
		zap.String("user_id", ownerID),
		zap.String("session_id", sessionID),
		zap.Int("count", resp.Count),
	)
	f.push(ownerID, sessionID, resp.Count)
	return resp, nil
}

// MarkAsRead removes exactly one notification from the session's set.
func (f *Feed) MarkAsRead(ctx context.Context, ownerID, sessionID, notificationID string) (*notification.FeedResponse, error) {
	if _, err := f.Current(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	st, ok := f.sessions[sessionID]
	if !ok || st.ownerID != ownerID {
		f.mu.Unlock()
		return nil, xerrors.ErrNotFound
	}
	idx := -1
	for i, n := range st.items {
		if n.ID == notificationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		f.mu.Unlock()
		return nil, fmt.Errorf("notification %s: %w", notificationID, xerrors.ErrNotFound)
	}

	items := make([]notification.Notification, 0, len(st.items)-1)
	items = append(items, st.items[:idx]...)
	items = append(items, st.items[idx+1:]...)
	st.items = items
	resp := snapshot(st)
	f.mu.Unlock()

	f.push(ownerID, sessionID, resp.Count)
	return resp, nil
}

// Count returns the number of unread notifications for the session.
func (f *Feed) Count(ctx context.Context, ownerID, sessionID string) (int, error) {
	resp, err := f.Current(ctx, ownerID, sessionID)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Drop forgets the session. Called on sign-out.
func (f *Feed) Drop(sessionID string) {
	f.mu.Lock()
	delete(f.sessions, sessionID)
	f.mu.Unlock()
}

// evictExpiredLocked drops sessions whose token can no longer be valid.
// f.mu must be held.
func (f *Feed) evictExpiredLocked(now time.Time) {
	if f.sessionTTL <= 0 {
		return
	}
	for id, st := range f.sessions {
		if !now.Before(st.expiresAt) {
			delete(f.sessions, id)
		}
	}
}

func (f *Feed) push(ownerID, sessionID string, count int) {
	if f.pusher == nil {
		return
	}
	f.pusher.BroadcastNotificationCount(ownerID, sessionID, count)
}

// snapshot copies the state so callers never share the backing array.
func snapshot(st *feedState) *notification.FeedResponse {
	items := make([]notification.Notification, len(st.items))
	copy(items, st.items)
	return notification.NewFeedResponse(items, st.generatedAt)
}
