package bulkops

import (
	"go-fundadmin/internal/common/api"
	"go-fundadmin/internal/config"
	"go-fundadmin/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type BulkOperationApi struct {
	controller *BulkOperationController
	config     *config.Config
}

func NewBulkOperationApi(controller *BulkOperationController, config *config.Config) api.Route {
	return &BulkOperationApi{
		controller: controller,
		config:     config,
	}
}

func (h *BulkOperationApi) Setup(app *fiber.App) {
	group := app.Group("/api/bulk", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/operations", h.controller.ListOperations)
	group.Get("/operations/:id", h.controller.GetOperation)
	group.Post("/operations", h.controller.CreateOperation)
	group.Post("/operations/:id/approve", h.controller.ApproveOperation)
	group.Post("/operations/:id/cancel", h.controller.CancelOperation)
	group.Post("/operations/:id/execute", h.controller.ExecuteOperation)

	group.Use("/operations/:id/progress", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	group.Get("/operations/:id/progress", websocket.New(h.controller.StreamProgress))
}
