package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SalmanNajah/devhost-2025/internal/identity"
	"github.com/SalmanNajah/devhost-2025/pkg/response"
)

const (
	// ContextUID is the key for the verified auth uid in gin context.
	ContextUID = "auth_uid"
	// ContextEmail is the key for the verified email in gin context.
	ContextEmail = "auth_email"
	// ContextName is the key for the verified display name in gin context.
	ContextName = "auth_name"
)

// Auth verifies the request identity via a Bearer ID token or the __session
// cookie and stores the claims in the gin context.
func Auth(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := verify(c, verifier)
		if !ok {
			return
		}
		if claims.Email == "" {
			response.Unauthorized(c, "email not present in token")
			c.Abort()
			return
		}
		c.Set(ContextUID, claims.UID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextName, claims.Name)
		c.Next()
	}
}

func verify(c *gin.Context, verifier identity.Verifier) (*identity.Claims, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return nil, false
		}
		claims, err := verifier.VerifyIDToken(c.Request.Context(), parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return nil, false
		}
		return claims, true
	}
	if cookie, err := c.Cookie("__session"); err == nil && cookie != "" {
		claims, err := verifier.VerifySessionCookie(c.Request.Context(), cookie)
		if err != nil {
			response.Unauthorized(c, "invalid session cookie")
			c.Abort()
			return nil, false
		}
		return claims, true
	}
	response.Unauthorized(c, "missing credentials")
	c.Abort()
	return nil, false
}
