package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/interface/http/response"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
)

// AccessTokenParser проверяет access токен.
type AccessTokenParser interface {
	ParseAccess(token string) (valueobject.Actor, error)
}

// AuthMiddleware проверяет JWT access токен.
func AuthMiddleware(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		actor, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			response.Unauthorized(c, "токен невалиден")
			return
		}

		c.Set(ContextUserIDKey, actor.ID)
		c.Set(ContextRoleKey, actor.Role)
		c.Next()
	}
}

// RequireRole пропускает только указанные роли; администратор проходит всегда.
func RequireRole(roles ...valueobject.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(ContextRoleKey)
		current, _ := role.(valueobject.Role)
		if current == valueobject.RoleAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if current == r {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "недостаточно прав")
	}
}
