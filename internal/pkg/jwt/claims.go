// internal/pkg/jwt/claims.go
package jwt

import "github.com/golang-jwt/jwt/v5"

const PurposeAccess = "access"

// Claims carries the user and device on top of the registered claims. The
// token ID (jti) doubles as the session ID.
type Claims struct {
	UserID  string `json:"uid"`
	Email   string `json:"email"`
	Device  string `json:"device,omitempty"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}
