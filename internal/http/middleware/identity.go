package middleware

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const callerIDKey = "caller_id"

// CallerIdentity extracts an opaque caller id from a Bearer token issued by
// the external auth layer. Used for audit/ownership only: allocation logic
// never branches on it, and anonymous requests pass through.
func CallerIdentity() gin.HandlerFunc {
	secret := []byte(strings.TrimSpace(os.Getenv("JWT_SECRET")))

	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" || !strings.HasPrefix(raw, "Bearer ") {
			c.Next()
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
		if tokenStr == "" || len(secret) == 0 {
			c.Next()
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			// Invalid tokens degrade to anonymous; the engine does not gate
			// on identity.
			c.Next()
			return
		}
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if sub, err := claims.GetSubject(); err == nil && sub != "" {
				c.Set(callerIDKey, sub)
			}
		}
		c.Next()
	}
}

// GetCallerID returns the authenticated caller id, or "anonymous".
func GetCallerID(c *gin.Context) string {
	if c != nil {
		if v, ok := c.Get(callerIDKey); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return "anonymous"
}
