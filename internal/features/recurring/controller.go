package recurring

import (
	"strconv"

	"go-fundadmin/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RecurringJobController struct {
	Service RecurringJobService
}

func NewRecurringJobController(service RecurringJobService) *RecurringJobController {
	return &RecurringJobController{
		Service: service,
	}
}

func tenantFromCtx(c *fiber.Ctx) (primitive.ObjectID, primitive.ObjectID, error) {
	claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return primitive.NilObjectID, primitive.NilObjectID, fiber.NewError(fiber.StatusUnauthorized, "missing claims")
	}
	tenantID, err := primitive.ObjectIDFromHex(claims.TenantID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, fiber.NewError(fiber.StatusUnauthorized, "invalid tenant")
	}
	userID, _ := primitive.ObjectIDFromHex(claims.UserID)
	return tenantID, userID, nil
}

// CreateJob godoc
// @Summary Create a recurring job
// @Tags recurring
// @Accept json
// @Produce json
// @Param job body RecurringJob true "Recurring Job"
// @Success 201 {object} RecurringJob
// @Router /api/recurring/jobs [post]
func (ctrl *RecurringJobController) CreateJob(c *fiber.Ctx) error {
	tenantID, userID, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	var job RecurringJob
	if err := c.BodyParser(&job); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	job.TenantID = tenantID
	job.CreatedBy = userID

	if err := ctrl.Service.Create(c.UserContext(), &job); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(job)
}

func (ctrl *RecurringJobController) GetJob(c *fiber.Ctx) error {
	tenantID, _, err := tenantFromCtx(c)
	if err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid job id"})
	}

	job, err := ctrl.Service.Get(c.UserContext(), tenantID, id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if job == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
	}
	return c.JSON(job)
}

func (ctrl *RecurringJobController) ListJobs(c *fiber.Ctx) error {
	tenantID, _, err := tenantFromCtx(c)
	if err != nil {
		return err
	}

	limit, _ := strconv.ParseInt(c.Query("limit", "100"), 10, 64)
	jobs, err := ctrl.Service.List(c.UserContext(), tenantID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(jobs)
}

func (ctrl *RecurringJobController) UpdateJob(c *fiber.Ctx) error {
	tenantID, _, err := tenantFromCtx(c)
	if err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid job id"})
	}

	var job RecurringJob
	if err := c.BodyParser(&job); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	job.ID = id
	job.TenantID = tenantID

	if err := ctrl.Service.Update(c.UserContext(), &job); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(job)
}

func (ctrl *RecurringJobController) DeleteJob(c *fiber.Ctx) error {
	tenantID, _, err := tenantFromCtx(c)
	if err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid job id"})
	}

	if err := ctrl.Service.Delete(c.UserContext(), tenantID, id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RunJob godoc
// @Summary Run a recurring job immediately
// @Tags recurring
// @Produce json
// @Success 200 {object} RecurringJob
// @Router /api/recurring/jobs/{id}/run [post]
func (ctrl *RecurringJobController) RunJob(c *fiber.Ctx) error {
	tenantID, _, err := tenantFromCtx(c)
	if err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid job id"})
	}

	job, err := ctrl.Service.ExecuteJob(c.UserContext(), tenantID, id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(job)
}
