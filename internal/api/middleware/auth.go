package middleware

import (
	"context"
	"strings"

	"github.com/Freeeeeet/slot_swapper/internal/api/response"
	"github.com/Freeeeeet/slot_swapper/internal/auth"
	"github.com/gin-gonic/gin"
)

const UserIDKey = "user_id"

// TokenParser проверяет bearer токен
type TokenParser interface {
	ParseToken(tokenString string) (*auth.Claims, error)
}

// UserChecker подтверждает, что пользователь из токена существует
type UserChecker interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

// JWTAuth извлекает и проверяет Authorization: Bearer <token>
func JWTAuth(tokens TokenParser, users UserChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}

		claims, err := tokens.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Unauthorized(c, "token is invalid or expired")
			c.Abort()
			return
		}

		ok, err := users.Exists(c.Request.Context(), claims.UserID)
		if err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}
		if !ok {
			response.Unauthorized(c, "user no longer exists")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)

		c.Next()
	}
}
