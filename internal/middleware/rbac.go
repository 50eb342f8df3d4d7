package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/errors"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/response"
)

// RequirePermission allows the request when any role in the token grants
// permission ("courses.update", "users.delete", ...).
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.Actor().Can(permission) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing permission "+permission))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRoles allows the request when the token carries one of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		actor := claims.Actor()
		for _, role := range roles {
			if actor.HasRole(role) {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
