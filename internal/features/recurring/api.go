package recurring

import (
	"go-fundadmin/internal/common/api"
	"go-fundadmin/internal/config"
	"go-fundadmin/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RecurringJobApi struct {
	controller *RecurringJobController
	config     *config.Config
}

func NewRecurringJobApi(controller *RecurringJobController, config *config.Config) api.Route {
	return &RecurringJobApi{
		controller: controller,
		config:     config,
	}
}

func (h *RecurringJobApi) Setup(app *fiber.App) {
	group := app.Group("/api/recurring", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/jobs", h.controller.ListJobs)
	group.Get("/jobs/:id", h.controller.GetJob)
	group.Post("/jobs", h.controller.CreateJob)
	group.Put("/jobs/:id", h.controller.UpdateJob)
	group.Delete("/jobs/:id", h.controller.DeleteJob)
	group.Post("/jobs/:id/run", h.controller.RunJob)
}
