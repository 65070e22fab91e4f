package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/pkg/response"
)

// RequireRole allows only callers whose token carries one of roles. It must
// run after JWT.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[string(r)] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		if role == "" {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
