package middleware

import (
	"context"

	common_models "go-fundadmin/internal/common/models"
	"go-fundadmin/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates JWT tokens and injects user claims into context
func AuthMiddleware(skipAuth bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipAuth {
			// Inject dummy context for dev
			dummyClaims := &utils.UserClaims{
				UserID:   "dev-admin-id",
				TenantID: "000000000000000000000001",
				Roles:    []string{"admin"},
			}
			c.Locals(utils.UserClaimsKey, dummyClaims)
			injectClaims(c, dummyClaims)
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		// Extract token from "Bearer <token>"
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		token := authHeader[7:]
		claims, err := utils.ValidateToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(utils.UserClaimsKey, claims)
		injectClaims(c, claims)
		return c.Next()
	}
}

// injectClaims mirrors the claims into the request's user context so services
// and repositories that only see a context.Context can scope by tenant.
func injectClaims(c *fiber.Ctx, claims *utils.UserClaims) {
	ctx := context.WithValue(c.UserContext(), common_models.TenantIDKey, claims.TenantID)
	ctx = context.WithValue(ctx, utils.UserClaimsKey, claims)
	c.SetUserContext(ctx)
}
