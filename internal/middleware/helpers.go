// internal/middleware/helpers.go
package middleware

import "github.com/gin-gonic/gin"

// GetAuth returns the caller set by Auth().
func GetAuth(c *gin.Context) (*AuthContext, bool) {
	v, exists := c.Get(ctxAuth)
	if !exists {
		return nil, false
	}
	a, ok := v.(*AuthContext)
	return a, ok
}

// MustGetAuth gets the caller from context or panics
func MustGetAuth(c *gin.Context) *AuthContext {
	a, ok := GetAuth(c)
	if !ok {
		panic("auth context not found")
	}
	return a
}

// GetUserID gets the user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(ctxUserID)
	return userID, userID != ""
}

// MustGetUserID gets the user ID from context or panics
func MustGetUserID(c *gin.Context) string {
	userID, ok := GetUserID(c)
	if !ok {
		panic("user_id not found in context")
	}
	return userID
}

// GetJTI gets the token ID, which is also the session ID
func GetJTI(c *gin.Context) (string, bool) {
	jti := c.GetString(ctxJTI)
	return jti, jti != ""
}
