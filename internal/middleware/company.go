package middleware

import (
	"context"

	common_models "go-fundadmin/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

// CompanyMiddleware extracts the X-Company-Id header and adds it to the
// request context. One tenant may operate several companies/funds; scoped
// listing endpoints read this value.
func CompanyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID := c.Get("X-Company-Id")
		if companyID != "" {
			ctx := context.WithValue(c.UserContext(), common_models.CompanyIDKey, companyID)
			c.SetUserContext(ctx)
		}
		return c.Next()
	}
}
