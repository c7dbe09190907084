// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"fleetcare-service/internal/domain/auth"
	wstypes "fleetcare-service/internal/domain/websocket"
	xerrors "fleetcare-service/internal/pkg/errors"
	"fleetcare-service/internal/pkg/jwt"
	"fleetcare-service/internal/pkg/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type TokenIssuer interface {
	GenerateAccessToken(userID, email, device string) (*jwt.Issued, error)
}

type TokenVerifier interface {
	VerifyAccessToken(token string) (*jwt.Claims, error)
}

// SessionStore is implemented by session.Manager.
type SessionStore interface {
	CreateSession(ctx context.Context, s *session.SessionData) error
	GetSession(ctx context.Context, userID, jti string) (*session.SessionData, error)
	InvalidateSession(ctx context.Context, userID, jti string) error
	GetUserActiveSessions(ctx context.Context, userID string) ([]*session.SessionData, error)
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AttemptLimiter is implemented by session.RateLimiter.
type AttemptLimiter interface {
	CheckSignInAttempt(ctx context.Context, ip, email string) (bool, int64, error)
	ResetSignInAttempts(ctx context.Context, ip, email string) error
}

// SessionNotifier pushes session transitions to the user's open sockets.
type SessionNotifier interface {
	BroadcastSessionEvent(userID string, eventType wstypes.EventType, data wstypes.SessionEventData)
}

type AuthService struct {
	userRepo       auth.UserRepository
	issuer         TokenIssuer
	verifier       TokenVerifier
	sessionManager SessionStore
	rateLimiter    AttemptLimiter
	notifier       SessionNotifier
	onSignOut      []func(jti string)
	logger         *zap.Logger
}

func NewAuthService(
	userRepo auth.UserRepository,
	jwtManager *jwt.Manager,
	sessionManager SessionStore,
	rateLimiter AttemptLimiter,
	notifier SessionNotifier,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		issuer:         jwtManager.Generator,
		verifier:       jwtManager.Verifier,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
		notifier:       notifier,
		logger:         logger,
	}
}

// OnSignOut registers a hook that runs after a session has been ended.
func (s *AuthService) OnSignOut(fn func(jti string)) {
	s.onSignOut = append(s.onSignOut, fn)
}

// ========== Sign up ==========

// SignUp creates an account and signs it in.
func (s *AuthService) SignUp(ctx context.Context, req *auth.SignUpRequest) (*auth.SessionResponse, error) {
	email := normalizeEmail(req.Email)

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, xerrors.ErrDuplicateEntry
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &auth.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return s.startSession(ctx, user, req.Device, req.IPAddress, req.UserAgent)
}

// ========== Sign in ==========

// SignIn authenticates with email and password.
func (s *AuthService) SignIn(ctx context.Context, req *auth.SignInRequest) (*auth.SessionResponse, error) {
	email := normalizeEmail(req.Email)

	allowed, remaining, err := s.rateLimiter.CheckSignInAttempt(ctx, req.IPAddress, email)
	if err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: too many sign-in attempts, please try again in 15 minutes", xerrors.ErrRateLimited)
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", xerrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials (attempts remaining: %d)", xerrors.ErrUnauthorized, remaining)
	}

	if err := s.rateLimiter.ResetSignInAttempts(ctx, req.IPAddress, email); err != nil {
		s.logger.Warn("failed to reset sign-in attempts", zap.Error(err))
	}

	return s.startSession(ctx, user, req.Device, req.IPAddress, req.UserAgent)
}

// startSession issues a token and stores the matching session.
func (s *AuthService) startSession(ctx context.Context, user *auth.User, device, ipAddress, userAgent string) (*auth.SessionResponse, error) {
	issued, err := s.issuer.GenerateAccessToken(user.ID, user.Email, device)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	sessionData := &session.SessionData{
		JTI:            issued.JTI,
		UserID:         user.ID,
		Email:          user.Email,
		Device:         device,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		LoginAt:        issued.IssuedAt,
		LastActivityAt: issued.IssuedAt,
		ExpiresAt:      issued.ExpiresAt,
	}
	if err := s.sessionManager.CreateSession(ctx, sessionData); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.notify(user.ID, wstypes.EventTypeSessionSignedIn, wstypes.SessionEventData{
		SessionID: issued.JTI,
		Device:    device,
		Reason:    "signed_in",
		Message:   "A new session was started",
	})

	return &auth.SessionResponse{
		AccessToken: issued.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(issued.ExpiresAt).Seconds()),
		ExpiresAt:   issued.ExpiresAt,
		User: auth.UserInfo{
			ID:    user.ID,
			Email: user.Email,
		},
	}, nil
}

// ========== Sign out ==========

// SignOut ends the session and revokes its token until it would have expired.
func (s *AuthService) SignOut(ctx context.Context, userID, jti string, expiresAt time.Time) error {
	if err := s.sessionManager.InvalidateSession(ctx, userID, jti); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	if err := s.sessionManager.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	for _, fn := range s.onSignOut {
		fn(jti)
	}

	s.notify(userID, wstypes.EventTypeSessionSignedOut, wstypes.SessionEventData{
		SessionID: jti,
		Reason:    "signed_out",
		Message:   "You have been signed out",
	})

	s.logger.Info("user signed out", zap.String("user_id", userID), zap.String("session_id", jti))
	return nil
}

// ========== Session ==========

// CurrentSession describes the session a request was made with.
func (s *AuthService) CurrentSession(ctx context.Context, userID, jti string) (*auth.CurrentSession, error) {
	data, err := s.sessionManager.GetSession(ctx, userID, jti)
	if err != nil {
		return nil, err
	}
	return toCurrentSession(data), nil
}

// ActiveSessions lists every live session of the user, most recent sign-in first.
func (s *AuthService) ActiveSessions(ctx context.Context, userID string) ([]*auth.CurrentSession, error) {
	all, err := s.sessionManager.GetUserActiveSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]*auth.CurrentSession, 0, len(all))
	for _, data := range all {
		out = append(out, toCurrentSession(data))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SignedInAt.After(out[j].SignedInAt)
	})
	return out, nil
}

func toCurrentSession(data *session.SessionData) *auth.CurrentSession {
	return &auth.CurrentSession{
		SessionID:      data.JTI,
		User:           auth.UserInfo{ID: data.UserID, Email: data.Email},
		Device:         data.Device,
		SignedInAt:     data.LoginAt,
		LastActivityAt: data.LastActivityAt,
		ExpiresAt:      data.ExpiresAt,
	}
}

// ValidateToken checks the signature, the blacklist and that the session
// still exists.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrUnauthorized, err)
	}

	blacklisted, err := s.sessionManager.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return nil, fmt.Errorf("%w: token has been revoked", xerrors.ErrUnauthorized)
	}

	if _, err := s.sessionManager.GetSession(ctx, claims.UserID, claims.ID); err != nil {
		return nil, err
	}

	return claims, nil
}

func (s *AuthService) notify(userID string, eventType wstypes.EventType, data wstypes.SessionEventData) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastSessionEvent(userID, eventType, data)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
