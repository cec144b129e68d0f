package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MTES-MCT/mobilic-api-sub000/pkg/jwt"
	"github.com/MTES-MCT/mobilic-api-sub000/pkg/response"
)

// JWTAuth validates the access token of Authorization: Bearer <token>
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "invalid authorization header")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "invalid or expired token")
			c.Abort()
			return
		}

		if claims.TokenType != "access" {
			response.Unauthorized(c, 10002, "invalid token type")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// RoleAuth requires one of the given roles
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.Unauthorized(c, 10002, "not authenticated")
			c.Abort()
			return
		}

		userRole, _ := role.(string)
		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "forbidden")
		c.Abort()
	}
}
