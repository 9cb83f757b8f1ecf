package notification

import (
	"go-fundadmin/internal/common/api"
	"go-fundadmin/internal/config"
	"go-fundadmin/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type NotificationApi struct {
	controller *NotificationController
	config     *config.Config
}

func NewNotificationApi(controller *NotificationController, config *config.Config) api.Route {
	return &NotificationApi{
		controller: controller,
		config:     config,
	}
}

func (h *NotificationApi) Setup(app *fiber.App) {
	group := app.Group("/api/notifications", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.List)
	group.Get("/unread-count", h.controller.GetUnreadCount)
	group.Patch("/:id/read", h.controller.MarkAsRead)
	group.Patch("/read-all", h.controller.MarkAllAsRead)
}
