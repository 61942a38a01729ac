package middleware

import (
	"strings"

	"github.com/m1z23r/drift/pkg/drift"

	"github.com/nbhub/projects-api/internal/services"
)

const (
	UsernameKey = "username"
	AdminKey    = "admin"
)

func Auth(jwtService *services.JWTService) drift.HandlerFunc {
	return func(c *drift.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Unauthorized("missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.Unauthorized("invalid authorization header format")
			return
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			c.Unauthorized("invalid or expired token")
			return
		}

		c.Set(UsernameKey, claims.Username)
		c.Set(AdminKey, claims.Admin)

		c.Next()
	}
}

func GetUsername(c *drift.Context) string {
	if name, ok := c.Get(UsernameKey); ok {
		if n, ok := name.(string); ok {
			return n
		}
	}
	return ""
}

func IsAdmin(c *drift.Context) bool {
	if admin, ok := c.Get(AdminKey); ok {
		if a, ok := admin.(bool); ok {
			return a
		}
	}
	return false
}
