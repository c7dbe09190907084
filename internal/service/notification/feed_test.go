package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fleetcare-service/internal/domain/device"
	"fleetcare-service/internal/domain/fleet"
	"fleetcare-service/internal/domain/notification"
	"fleetcare-service/internal/domain/vehicle"
	xerrors "fleetcare-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type fakeSource struct {
	mu    sync.Mutex
	snap  fleet.Snapshot
	err   error
	calls int
}

func (s *fakeSource) FetchDevicesAndVehicles(_ context.Context, _ string) (*fleet.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	snap := fleet.Snapshot{
		Vehicles: append([]vehicle.Vehicle(nil), s.snap.Vehicles...),
		Devices:  append([]device.Device(nil), s.snap.Devices...),
	}
	return &snap, nil
}

type pushed struct {
	userID, sessionID string
	count             int
}

type fakePusher struct {
	mu     sync.Mutex
	pushes []pushed
}

func (p *fakePusher) BroadcastNotificationCount(userID, sessionID string, count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, pushed{userID, sessionID, count})
}

func (p *fakePusher) last() pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushes[len(p.pushes)-1]
}

const testSessionTTL = 24 * time.Hour

func newTestFeed(src *fakeSource, pusher *fakePusher) *Feed {
	f := NewFeed(newTestGenerator(), src, pusher, testSessionTTL, zap.NewNop())
	f.now = func() time.Time { return testNow }
	return f
}

func threeAlerts() fleet.Snapshot {
	return fleet.Snapshot{
		Vehicles: []vehicle.Vehicle{
			{ID: "v1", Name: "Van", InsuranceExpiry: strPtr("2020-01-01"), InspectionDue: strPtr("2024-06-10")},
		},
		Devices: []device.Device{
			{ID: "d1", Name: "Pump", VehicleID: strPtr("v1"), NextServiceDate: strPtr("2024-06-02")},
		},
	}
}

func ids(items []notification.Notification) []string {
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.ID
	}
	return out
}

func TestFeedCurrentGeneratesOnce(t *testing.T) {
	src := &fakeSource{snap: threeAlerts()}
	f := newTestFeed(src, &fakePusher{})
	ctx := context.Background()

	first, err := f.Current(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if first.Count != 3 || first.ExpiredCount != 1 {
		t.Fatalf("unexpected feed %+v", first)
	}
	if _, err := f.Current(ctx, "u1", "s1"); err != nil {
		t.Fatalf("Current: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected one fetch, got %d", src.calls)
	}
}

func TestFeedMarkAsReadRemovesExactlyOne(t *testing.T) {
	src := &fakeSource{snap: threeAlerts()}
	pusher := &fakePusher{}
	f := newTestFeed(src, pusher)
	ctx := context.Background()

	before, err := f.Current(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}

	after, err := f.MarkAsRead(ctx, "u1", "s1", "device-service-d1")
	if err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	if after.Count != before.Count-1 {
		t.Fatalf("count = %d, want %d", after.Count, before.Count-1)
	}

	want := []string{"insurance-v1", "inspection-v1"}
	got := ids(after.Notifications)
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("remaining = %v, want %v", got, want)
	}
	if p := pusher.last(); p.count != 2 || p.sessionID != "s1" || p.userID != "u1" {
		t.Fatalf("unexpected push %+v", p)
	}

	// the earlier response must not see the removal
	if before.Count != 3 || len(before.Notifications) != 3 {
		t.Fatalf("earlier response was modified: %+v", before)
	}
}

func TestFeedMarkAsReadUnknownID(t *testing.T) {
	src := &fakeSource{snap: threeAlerts()}
	f := newTestFeed(src, &fakePusher{})
	ctx := context.Background()

	if _, err := f.MarkAsRead(ctx, "u1", "s1", "insurance-nope"); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	cur, _ := f.Current(ctx, "u1", "s1")
	if cur.Count != 3 {
		t.Fatalf("set changed after failed mark: %d", cur.Count)
	}
}

func TestFeedRefreshRestoresReadItems(t *testing.T) {
	src := &fakeSource{snap: threeAlerts()}
	f := newTestFeed(src, &fakePusher{})
	ctx := context.Background()

	if _, err := f.MarkAsRead(ctx, "u1", "s1", "insurance-v1"); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	resp, err := f.Refresh(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if resp.Count != 3 || resp.Notifications[0].ID != "insurance-v1" {
		t.Fatalf("read item did not reappear: %v", ids(resp.Notifications))
	}

	// a condition that no longer holds disappears on refresh
	src.mu.Lock()
	src.snap.Devices = nil
	src.mu.Unlock()
	resp, err = f.Refresh(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("expected 2 after device removal, got %v", ids(resp.Notifications))
	}
}

func TestFeedSessionsAreIndependent(t *testing.T) {
	src := &fakeSource{snap: threeAlerts()}
	f := newTestFeed(src, &fakePusher{})
	ctx := context.Background()

	if _, err := f.MarkAsRead(ctx, "u1", "s1", "insurance-v1"); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	other, err := f.Current(ctx, "u1", "s2")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if other.Count != 3 {
		t.Fatalf("second session affected by first: %d", other.Count)
	}

	f.Drop("s1")
	cur, err := f.Current(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.Count != 3 {
		t.Fatalf("dropped session kept read state: %d", cur.Count)
	}
}

func TestFeedRefreshError(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	pusher := &fakePusher{}
	f := newTestFeed(src, pusher)

	if _, err := f.Refresh(context.Background(), "u1", "s1"); err == nil {
		t.Fatalf("expected error")
	}
	if len(pusher.pushes) != 0 {
		t.Fatalf("nothing should be pushed on failure")
	}
}

func TestFeedGenerateUsesSuppliedNow(t *testing.T) {
	f := newTestFeed(&fakeSource{}, nil)
	now := time.Date(2019, 12, 15, 0, 0, 0, 0, time.UTC)
	snap := threeAlerts()

	resp := f.Generate(&notification.GenerateRequest{Vehicles: snap.Vehicles, Now: &now})
	if resp.Count != 1 || resp.Notifications[0].Expired {
		t.Fatalf("expected one upcoming insurance alert, got %+v", resp.Notifications)
	}
	if !resp.GeneratedAt.Equal(now) {
		t.Fatalf("generated_at = %v", resp.GeneratedAt)
	}
}

func TestFeedEvictsExpiredSessions(t *testing.T) {
	src := &fakeSource{snap: threeAlerts()}
	f := newTestFeed(src, &fakePusher{})
	ctx := context.Background()

	clock := testNow
	f.now = func() time.Time { return clock }

	for i := 0; i < 1000; i++ {
		if _, err := f.Current(ctx, "u1", fmt.Sprintf("jti-%d", i)); err != nil {
			t.Fatalf("Current: %v", err)
		}
	}
	if n := sessionCount(f); n != 1000 {
		t.Fatalf("expected 1000 sessions, got %d", n)
	}

	// none of those tokens is valid any more; the next call sweeps them
	clock = testNow.Add(testSessionTTL + time.Minute)
	if _, err := f.Current(ctx, "u1", "fresh"); err != nil {
		t.Fatalf("Current: %v", err)
	}
	if n := sessionCount(f); n != 1 {
		t.Fatalf("expired sessions retained: %d", n)
	}
}

func TestFeedRefreshKeepsOriginalExpiry(t *testing.T) {
	src := &fakeSource{snap: threeAlerts()}
	f := newTestFeed(src, &fakePusher{})
	ctx := context.Background()

	clock := testNow
	f.now = func() time.Time { return clock }

	if _, err := f.MarkAsRead(ctx, "u1", "s1", "insurance-v1"); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	clock = testNow.Add(testSessionTTL - time.Hour)
	if _, err := f.Refresh(ctx, "u1", "s1"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := f.MarkAsRead(ctx, "u1", "s1", "insurance-v1"); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}

	// past the first sighting plus TTL the session starts over
	clock = testNow.Add(testSessionTTL)
	cur, err := f.Current(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.Count != 3 {
		t.Fatalf("expected regenerated set after expiry, got %v", ids(cur.Notifications))
	}
}

func sessionCount(f *Feed) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}
