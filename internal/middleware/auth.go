// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/licensing-portal/internal/i18n"
	"github.com/javajoker/licensing-portal/internal/models"
	"github.com/javajoker/licensing-portal/internal/utils"
)

// AuthRequired verifies the bearer token issued by the identity provider
// and puts the caller's identity and role on the context.
func AuthRequired(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthRequired))
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateJWT(parts[1])
		if err != nil {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthTokenExpired))
			c.Abort()
			return
		}

		role := models.Role(strings.ToLower(claims.Role))
		if !role.Valid() {
			utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyForbidden))
			c.Abort()
			return
		}

		c.Set(utils.ContextActorIdentity, strings.ToLower(strings.TrimSpace(claims.Email)))
		c.Set(utils.ContextActorRole, string(role))
		c.Next()
	}
}

// RoleRequired rejects callers whose role is not listed. It must run after
// AuthRequired.
func RoleRequired(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, exists := utils.GetActorFromContext(c)
		if !exists {
			utils.UnauthorizedResponse(c, "")
			c.Abort()
			return
		}

		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}

		utils.ForbiddenResponse(c, "")
		c.Abort()
	}
}
