// internal/domain/auth/dto.go
package auth

import (
	"context"
	"time"
)

// SignUpRequest for account creation
type SignUpRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	Device    string `json:"device"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// SignInRequest for email/password sign-in
type SignInRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	Device    string `json:"device"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// SessionResponse is returned after a successful sign-up or sign-in
type SessionResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserInfo  `json:"user"`
}

// UserInfo minimal user information
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// CurrentSession describes the session behind the request's token
type CurrentSession struct {
	SessionID      string    `json:"session_id"`
	User           UserInfo  `json:"user"`
	Device         string    `json:"device,omitempty"`
	SignedInAt     time.Time `json:"signed_in_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
