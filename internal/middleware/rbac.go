package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
	"github.com/noah-isme/smk-student-hub/pkg/response"
)

// RequirePermission allows the request when the session role holds every listed permission.
func RequirePermission(perms ...models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		for _, p := range perms {
			if !session.Can(p) {
				response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(session.Role)+" lacks "+string(p)))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// RequireRoles allows only the listed roles.
func RequireRoles(roles ...models.RoleKey) gin.HandlerFunc {
	allowed := make(map[models.RoleKey]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[session.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
