package websocket

import (
	"encoding/json"
	"testing"

	wstypes "fleetcare-service/internal/domain/websocket"

	"go.uber.org/zap"
)

func drain(t *testing.T, c *Client) []wstypes.WSMessage {
	t.Helper()
	var out []wstypes.WSMessage
	for {
		select {
		case data := <-c.send:
			var msg wstypes.WSMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("bad message: %v", err)
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func newTestHub() *Hub {
	return NewHub(nil, zap.NewNop())
}

func TestBroadcastNotificationCountTargetsSession(t *testing.T) {
	h := newTestHub()
	a := NewClient(h, nil, &ClientAuth{UserID: "u1", SessionID: "s1"})
	b := NewClient(h, nil, &ClientAuth{UserID: "u1", SessionID: "s2"})
	other := NewClient(h, nil, &ClientAuth{UserID: "u2", SessionID: "s3"})
	for _, c := range []*Client{a, b, other} {
		h.registerClient(c)
		drain(t, c)
	}

	h.BroadcastMessage(&BroadcastMessage{
		UserIDs:   []string{"u1"},
		SessionID: "s1",
		Channel:   wstypes.ChannelNotifications,
		Message:   wstypes.NewMessage(wstypes.EventTypeNotificationCount, wstypes.NotificationCountData{Count: 4}),
	})

	got := drain(t, a)
	if len(got) != 1 || got[0].Type != wstypes.EventTypeNotificationCount {
		t.Fatalf("session s1 got %+v", got)
	}
	if data, ok := got[0].Data.(map[string]interface{}); !ok || data["count"] != float64(4) {
		t.Fatalf("unexpected payload %+v", got[0].Data)
	}
	if msgs := drain(t, b); len(msgs) != 0 {
		t.Fatalf("other session received %d messages", len(msgs))
	}
	if msgs := drain(t, other); len(msgs) != 0 {
		t.Fatalf("other user received %d messages", len(msgs))
	}
}

func TestSessionEventsReachAllUserSockets(t *testing.T) {
	h := newTestHub()
	a := NewClient(h, nil, &ClientAuth{UserID: "u1", SessionID: "s1"})
	b := NewClient(h, nil, &ClientAuth{UserID: "u1", SessionID: "s2"})
	h.registerClient(a)
	h.registerClient(b)
	drain(t, a)
	drain(t, b)

	b.Unsubscribe(wstypes.ChannelSession)
	h.BroadcastMessage(&BroadcastMessage{
		UserIDs: []string{"u1"},
		Channel: wstypes.ChannelSession,
		Message: wstypes.NewMessage(wstypes.EventTypeSessionSignedIn, wstypes.SessionEventData{SessionID: "s9"}),
	})

	if msgs := drain(t, a); len(msgs) != 1 || msgs[0].Type != wstypes.EventTypeSessionSignedIn {
		t.Fatalf("subscribed socket got %+v", msgs)
	}
	if msgs := drain(t, b); len(msgs) != 0 {
		t.Fatalf("unsubscribed socket got %+v", msgs)
	}
}

func TestDisconnectSession(t *testing.T) {
	h := newTestHub()
	a := NewClient(h, nil, &ClientAuth{UserID: "u1", SessionID: "s1"})
	b := NewClient(h, nil, &ClientAuth{UserID: "u1", SessionID: "s2"})
	h.registerClient(a)
	h.registerClient(b)

	h.DisconnectSession("u1", "s1", "signed_out")

	if a.ctx.Err() == nil {
		t.Fatalf("client of the signed out session should be closed")
	}
	if b.ctx.Err() != nil {
		t.Fatalf("other session should stay open")
	}
	if n := h.GetConnectedClients("u1"); n != 1 {
		t.Fatalf("connected = %d, want 1", n)
	}

	a.Close()
	h.DisconnectSession("u1", "s2", "signed_out")
	if h.IsUserConnected("u1") {
		t.Fatalf("user should have no sockets left")
	}
}

func TestSubscribeRejectsUnknownChannel(t *testing.T) {
	c := NewClient(newTestHub(), nil, &ClientAuth{UserID: "u1", SessionID: "s1"})
	if c.Subscribe("audit") {
		t.Fatalf("unknown channel accepted")
	}
	if !c.IsSubscribed(wstypes.ChannelNotifications) || !c.IsSubscribed(wstypes.ChannelSession) {
		t.Fatalf("default channels missing: %v", c.Channels())
	}
}
