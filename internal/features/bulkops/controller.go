package bulkops

import (
	"strconv"

	"go-fundadmin/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BulkOperationController struct {
	Service BulkOperationService
	Hub     *ProgressHub
}

func NewBulkOperationController(service BulkOperationService, hub *ProgressHub) *BulkOperationController {
	return &BulkOperationController{
		Service: service,
		Hub:     hub,
	}
}

func claimsFromCtx(c *fiber.Ctx) (primitive.ObjectID, primitive.ObjectID, error) {
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

// CreateOperation godoc
// @Summary Create a bulk operation
// @Tags bulk
// @Accept json
// @Produce json
// @Param operation body BulkOperation true "Bulk Operation"
// @Success 201 {object} BulkOperation
// @Router /api/bulk/operations [post]
func (ctrl *BulkOperationController) CreateOperation(c *fiber.Ctx) error {
	tenantID, userID, err := claimsFromCtx(c)
	if err != nil {
		return err
	}

	var op BulkOperation
	if err := c.BodyParser(&op); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	op.TenantID = tenantID
	op.CreatedBy = userID
	op.Source = "api"

	if err := ctrl.Service.Create(c.UserContext(), &op); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(op)
}

func (ctrl *BulkOperationController) GetOperation(c *fiber.Ctx) error {
	tenantID, _, err := claimsFromCtx(c)
	if err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid operation id"})
	}

	op, err := ctrl.Service.Get(c.UserContext(), tenantID, id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if op == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Operation not found"})
	}
	return c.JSON(op)
}

func (ctrl *BulkOperationController) ListOperations(c *fiber.Ctx) error {
	tenantID, _, err := claimsFromCtx(c)
	if err != nil {
		return err
	}

	var companyID *primitive.ObjectID
	if hex := c.Query("company_id"); hex != "" {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid company_id"})
		}
		companyID = &id
	}

	limit, _ := strconv.ParseInt(c.Query("limit", "50"), 10, 64)
	ops, err := ctrl.Service.List(c.UserContext(), tenantID, companyID, BulkStatus(c.Query("status")), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(ops)
}

func (ctrl *BulkOperationController) ApproveOperation(c *fiber.Ctx) error {
	tenantID, userID, err := claimsFromCtx(c)
	if err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid operation id"})
	}

	if err := ctrl.Service.Approve(c.UserContext(), tenantID, id, userID); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ctrl *BulkOperationController) CancelOperation(c *fiber.Ctx) error {
	tenantID, _, err := claimsFromCtx(c)
	if err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid operation id"})
	}

	if err := ctrl.Service.Cancel(c.UserContext(), tenantID, id); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteOperation godoc
// @Summary Execute a pending bulk operation
// @Tags bulk
// @Produce json
// @Success 200 {object} BulkOperation
// @Router /api/bulk/operations/{id}/execute [post]
func (ctrl *BulkOperationController) ExecuteOperation(c *fiber.Ctx) error {
	tenantID, _, err := claimsFromCtx(c)
	if err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid operation id"})
	}

	op, err := ctrl.Service.Execute(c.UserContext(), tenantID, id)
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(op)
}

// StreamProgress pushes live progress updates over a websocket until the
// operation reaches a terminal status or the client goes away.
func (ctrl *BulkOperationController) StreamProgress(conn *websocket.Conn) {
	operationID := conn.Params("id")
	updates := ctrl.Hub.Subscribe(operationID)
	defer ctrl.Hub.Unsubscribe(operationID, updates)
	defer conn.Close()

	for update := range updates {
		if err := conn.WriteJSON(update); err != nil {
			return
		}
		if update.Status.Terminal() {
			return
		}
	}
}
