package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/TreeBites/treebites-push/errors"
	"github.com/gin-gonic/gin"
)

const serviceKeyHeader = "X-Service-Key"

// ServiceAuthMiddleware admits backend callers presenting the shared service
// key, either as X-Service-Key or as a bearer token. An empty key rejects
// every request.
func ServiceAuthMiddleware(serviceKey string) gin.HandlerFunc {
	want := []byte(serviceKey)
	return func(c *gin.Context) {
		got := c.GetHeader(serviceKeyHeader)
		if got == "" {
			got = BearerToken(c)
		}

		if len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			_ = c.Error(errors.AuthenticationFailed("invalid service key"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
