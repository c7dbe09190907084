package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
	"time"

	"fleetcare-service/internal/domain/auth"
	wstypes "fleetcare-service/internal/domain/websocket"
	xerrors "fleetcare-service/internal/pkg/errors"
	"fleetcare-service/internal/pkg/jwt"
	"fleetcare-service/internal/pkg/session"

	"go.uber.org/zap"
)

type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*auth.User
}

func (m *memUsers) Create(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return xerrors.ErrDuplicateEntry
	}
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (m *memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byEmail[email]
	return ok, nil
}

type memSessions struct {
	mu          sync.Mutex
	sessions    map[string]*session.SessionData
	blacklisted map[string]time.Duration
}

func (m *memSessions) CreateSession(_ context.Context, s *session.SessionData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID+":"+s.JTI] = s
	return nil
}

func (m *memSessions) GetSession(_ context.Context, userID, jti string) (*session.SessionData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID+":"+jti]
	if !ok {
		return nil, xerrors.ErrSessionExpired
	}
	return s, nil
}

func (m *memSessions) InvalidateSession(_ context.Context, userID, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID+":"+jti)
	return nil
}

func (m *memSessions) GetUserActiveSessions(_ context.Context, userID string) ([]*session.SessionData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*session.SessionData
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSessions) IsTokenBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blacklisted[jti]
	return ok, nil
}

func (m *memSessions) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blacklisted[jti] = ttl
	return nil
}

type countingLimiter struct {
	limit    int64
	attempts map[string]int64
	resets   int
}

func (l *countingLimiter) CheckSignInAttempt(_ context.Context, ip, email string) (bool, int64, error) {
	l.attempts[ip+email]++
	n := l.attempts[ip+email]
	remaining := l.limit - n
	if remaining < 0 {
		remaining = 0
	}
	return n <= l.limit, remaining, nil
}

func (l *countingLimiter) ResetSignInAttempts(_ context.Context, ip, email string) error {
	delete(l.attempts, ip+email)
	l.resets++
	return nil
}

type recordedEvent struct {
	userID string
	typ    wstypes.EventType
	data   wstypes.SessionEventData
}

type recordingNotifier struct {
	events []recordedEvent
}

func (n *recordingNotifier) BroadcastSessionEvent(userID string, eventType wstypes.EventType, data wstypes.SessionEventData) {
	n.events = append(n.events, recordedEvent{userID, eventType, data})
}

type fixture struct {
	svc      *AuthService
	sessions *memSessions
	limiter  *countingLimiter
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	manager := &jwt.Manager{
		Generator: jwt.NewGenerator(priv, "fleetcare", "fleetcare-app", "test", time.Hour),
		Verifier:  jwt.NewVerifier(&priv.PublicKey, "fleetcare", "fleetcare-app"),
	}

	f := &fixture{
		sessions: &memSessions{sessions: map[string]*session.SessionData{}, blacklisted: map[string]time.Duration{}},
		limiter:  &countingLimiter{limit: 5, attempts: map[string]int64{}},
		notifier: &recordingNotifier{},
	}
	f.svc = NewAuthService(&memUsers{byEmail: map[string]*auth.User{}}, manager, f.sessions, f.limiter, f.notifier, zap.NewNop())
	return f
}

func TestSignUpThenSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	up, err := f.svc.SignUp(ctx, &auth.SignUpRequest{Email: " Owner@Example.com ", Password: "correct horse", Device: "web"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if up.User.Email != "owner@example.com" || up.AccessToken == "" || up.TokenType != "Bearer" {
		t.Fatalf("unexpected response %+v", up)
	}

	if _, err := f.svc.SignUp(ctx, &auth.SignUpRequest{Email: "owner@example.com", Password: "another one"}); !errors.Is(err, xerrors.ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}

	in, err := f.svc.SignIn(ctx, &auth.SignInRequest{Email: "owner@example.com", Password: "correct horse", IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if in.User.ID != up.User.ID {
		t.Fatalf("signed in as a different user")
	}
	if f.limiter.resets != 1 {
		t.Fatalf("successful sign-in should reset attempts")
	}

	claims, err := f.svc.ValidateToken(ctx, in.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != up.User.ID {
		t.Fatalf("claims user = %s", claims.UserID)
	}

	cur, err := f.svc.CurrentSession(ctx, claims.UserID, claims.ID)
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if cur.SessionID != claims.ID || cur.User.Email != "owner@example.com" {
		t.Fatalf("unexpected session %+v", cur)
	}

	if len(f.notifier.events) != 2 || f.notifier.events[1].typ != wstypes.EventTypeSessionSignedIn {
		t.Fatalf("expected two signed_in events, got %+v", f.notifier.events)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.SignUp(ctx, &auth.SignUpRequest{Email: "a@b.co", Password: "password1"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	_, err := f.svc.SignIn(ctx, &auth.SignInRequest{Email: "a@b.co", Password: "nope", IPAddress: "ip"})
	if !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	_, err = f.svc.SignIn(ctx, &auth.SignInRequest{Email: "missing@b.co", Password: "nope", IPAddress: "ip"})
	if !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Fatalf("unknown email should look like bad credentials, got %v", err)
	}
}

func TestSignInRateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.SignUp(ctx, &auth.SignUpRequest{Email: "a@b.co", Password: "password1"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := f.svc.SignIn(ctx, &auth.SignInRequest{Email: "a@b.co", Password: "wrong", IPAddress: "ip"}); !errors.Is(err, xerrors.ErrUnauthorized) {
			t.Fatalf("attempt %d: expected ErrUnauthorized, got %v", i+1, err)
		}
	}
	_, err := f.svc.SignIn(ctx, &auth.SignInRequest{Email: "a@b.co", Password: "password1", IPAddress: "ip"})
	if !errors.Is(err, xerrors.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestSignOutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.SignUp(ctx, &auth.SignUpRequest{Email: "a@b.co", Password: "password1"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	claims, err := f.svc.ValidateToken(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	var dropped []string
	f.svc.OnSignOut(func(jti string) { dropped = append(dropped, jti) })

	if err := f.svc.SignOut(ctx, claims.UserID, claims.ID, claims.ExpiresAt.Time); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if len(dropped) != 1 || dropped[0] != claims.ID {
		t.Fatalf("sign-out hook not called: %v", dropped)
	}
	if ttl := f.sessions.blacklisted[claims.ID]; ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected blacklist ttl %v", ttl)
	}
	if _, err := f.svc.ValidateToken(ctx, resp.AccessToken); !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Fatalf("revoked token accepted: %v", err)
	}
	if _, err := f.svc.CurrentSession(ctx, claims.UserID, claims.ID); !errors.Is(err, xerrors.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	last := f.notifier.events[len(f.notifier.events)-1]
	if last.typ != wstypes.EventTypeSessionSignedOut || last.data.SessionID != claims.ID {
		t.Fatalf("unexpected event %+v", last)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.ValidateToken(context.Background(), "not.a.token"); !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestActiveSessionsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	up, err := f.svc.SignUp(ctx, &auth.SignUpRequest{Email: "a@b.co", Password: "password1", Device: "phone"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	for _, s := range f.sessions.sessions {
		s.LoginAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	in, err := f.svc.SignIn(ctx, &auth.SignInRequest{Email: "a@b.co", Password: "password1", Device: "laptop", IPAddress: "ip"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	list, err := f.svc.ActiveSessions(ctx, up.User.ID)
	if err != nil {
		t.Fatalf("ActiveSessions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	if list[0].Device != "laptop" || list[1].Device != "phone" {
		t.Fatalf("unexpected order: %s, %s", list[0].Device, list[1].Device)
	}
	if in.User.ID != up.User.ID {
		t.Fatalf("sign in returned another user")
	}
}
