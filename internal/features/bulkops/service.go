package bulkops

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	common_models "go-fundadmin/internal/common/models"
	"go-fundadmin/internal/features/audit"
	"go-fundadmin/internal/features/automation"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const batchSize = 25

// EventEmitter feeds completion events back into the automation engine.
// Wired after construction; the engine depends on this service for the
// START_PLAYBOOK action.
type EventEmitter interface {
	Emit(ctx context.Context, event *automation.AutomationEvent) ([]automation.AutomationExecution, error)
}

type BulkOperationService interface {
	Create(ctx context.Context, op *BulkOperation) error
	Get(ctx context.Context, tenantID, id primitive.ObjectID) (*BulkOperation, error)
	List(ctx context.Context, tenantID primitive.ObjectID, companyID *primitive.ObjectID, status BulkStatus, limit int64) ([]BulkOperation, error)
	Approve(ctx context.Context, tenantID, id, approverID primitive.ObjectID) error
	Cancel(ctx context.Context, tenantID, id primitive.ObjectID) error
	Execute(ctx context.Context, tenantID, id primitive.ObjectID) (*BulkOperation, error)

	// StartPlaybook satisfies the automation engine's collaborator contract.
	StartPlaybook(ctx context.Context, tenantID primitive.ObjectID, companyID *primitive.ObjectID, config map[string]interface{}) (string, error)

	SetEmitter(emitter EventEmitter)
}

type BulkOperationServiceImpl struct {
	Repo         BulkOperationRepository
	Handlers     HandlerRegistry
	Notifier     automation.Notifier
	AuditService audit.AuditService
	Hub          *ProgressHub
	Logger       *zap.Logger

	emitter EventEmitter
}

func NewBulkOperationService(
	repo BulkOperationRepository,
	handlers HandlerRegistry,
	notifier automation.Notifier,
	auditService audit.AuditService,
	hub *ProgressHub,
	logger *zap.Logger,
) BulkOperationService {
	return &BulkOperationServiceImpl{
		Repo:         repo,
		Handlers:     handlers,
		Notifier:     notifier,
		AuditService: auditService,
		Hub:          hub,
		Logger:       logger,
	}
}

func (s *BulkOperationServiceImpl) SetEmitter(emitter EventEmitter) {
	s.emitter = emitter
}

func (s *BulkOperationServiceImpl) Create(ctx context.Context, op *BulkOperation) error {
	if op.TenantID.IsZero() {
		return fmt.Errorf("tenant_id is required")
	}
	if _, ok := s.Handlers[op.Type]; !ok {
		return fmt.Errorf("unsupported operation type: %s", op.Type)
	}
	if op.TargetType == "" {
		return fmt.Errorf("target_type is required")
	}
	op.TargetIDs = dedupe(op.TargetIDs)
	if len(op.TargetIDs) == 0 {
		return fmt.Errorf("at least one target is required")
	}

	op.RequiresApproval = ShouldRequireApproval(op.Type, len(op.TargetIDs), op.RequiresApproval)
	if op.RequiresApproval {
		op.Status = BulkStatusPendingApproval
	} else {
		op.Status = BulkStatusPending
	}
	op.Progress = 0
	op.Results = BulkResults{}

	if err := s.Repo.Create(ctx, op); err != nil {
		return err
	}
	s.AuditService.LogChange(ctx, common_models.AuditActionBulk, "bulk_operations", op.ID.Hex(), map[string]common_models.Change{
		"operation": {New: op},
	})
	return nil
}

func (s *BulkOperationServiceImpl) Get(ctx context.Context, tenantID, id primitive.ObjectID) (*BulkOperation, error) {
	return s.Repo.Get(ctx, tenantID, id)
}

func (s *BulkOperationServiceImpl) List(ctx context.Context, tenantID primitive.ObjectID, companyID *primitive.ObjectID, status BulkStatus, limit int64) ([]BulkOperation, error) {
	return s.Repo.List(ctx, tenantID, companyID, status, limit)
}

func (s *BulkOperationServiceImpl) Approve(ctx context.Context, tenantID, id, approverID primitive.ObjectID) error {
	now := time.Now()
	ok, err := s.Repo.TransitionStatus(ctx, tenantID, id,
		[]BulkStatus{BulkStatusPendingApproval}, BulkStatusPending,
		bson.M{"approved_by": approverID, "approved_at": now})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("operation is not awaiting approval")
	}
	s.AuditService.LogChange(ctx, common_models.AuditActionApproval, "bulk_operations", id.Hex(), map[string]common_models.Change{
		"approved_by": {New: approverID.Hex()},
	})
	return nil
}

// Cancel is honored immediately before RUNNING; a running operation finishes
// its current batch first.
func (s *BulkOperationServiceImpl) Cancel(ctx context.Context, tenantID, id primitive.ObjectID) error {
	ok, err := s.Repo.TransitionStatus(ctx, tenantID, id,
		[]BulkStatus{BulkStatusPendingApproval, BulkStatusPending, BulkStatusRunning},
		BulkStatusCancelled, nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("operation can no longer be cancelled")
	}
	s.AuditService.LogChange(ctx, common_models.AuditActionBulk, "bulk_operations", id.Hex(), map[string]common_models.Change{
		"status": {New: BulkStatusCancelled},
	})
	return nil
}

// Execute drives the operation through its batches. A single target's
// failure is recorded and never aborts the batch; only infrastructure
// failures (unknown handler, export setup) fail the operation as a whole.
func (s *BulkOperationServiceImpl) Execute(ctx context.Context, tenantID, id primitive.ObjectID) (*BulkOperation, error) {
	op, err := s.Repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, fmt.Errorf("operation not found")
	}

	now := time.Now()
	ok, err := s.Repo.TransitionStatus(ctx, tenantID, id,
		[]BulkStatus{BulkStatusPending}, BulkStatusRunning,
		bson.M{"started_at": now})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("operation is not ready to run (status %s)", op.Status)
	}
	op.Status = BulkStatusRunning

	handler := s.Handlers[op.Type]
	if handler == nil {
		return s.fail(ctx, op, fmt.Sprintf("no handler registered for %s", op.Type))
	}
	if scoped, ok := handler.(RunScoped); ok {
		if err := scoped.Begin(ctx, op); err != nil {
			return s.fail(ctx, op, fmt.Sprintf("handler setup failed: %v", err))
		}
	}

	total := len(op.TargetIDs)
	processed := 0
	cancelled := false

	for start := 0; start < total && !cancelled; start += batchSize {
		if start > 0 {
			status, err := s.Repo.GetStatus(ctx, tenantID, id)
			if err != nil {
				s.Logger.Warn("cancellation check failed",
					zap.String("operation_id", id.Hex()), zap.Error(err))
			} else if status == BulkStatusCancelled {
				cancelled = true
				break
			}
		}

		end := start + batchSize
		if end > total {
			end = total
		}
		for _, targetID := range op.TargetIDs[start:end] {
			outcome, targetErr := s.applyTarget(ctx, handler, op, targetID)

			processed++
			progress := int(math.Round(float64(processed) / float64(total) * 100))
			if err := s.Repo.RecordTarget(ctx, tenantID, id, progress, outcome, targetErr); err != nil {
				s.Logger.Warn("failed to persist target result",
					zap.String("operation_id", id.Hex()),
					zap.String("target_id", targetID), zap.Error(err))
			}

			switch outcome {
			case OutcomeSuccess:
				op.Results.Successful++
			case OutcomeFailed:
				op.Results.Failed++
				op.Results.Errors = append(op.Results.Errors, *targetErr)
			case OutcomeSkipped:
				op.Results.Skipped++
			}
			op.Progress = progress

			s.Hub.Publish(ProgressUpdate{
				OperationID: id.Hex(),
				Status:      BulkStatusRunning,
				Progress:    progress,
				Results:     op.Results,
			})
		}
	}

	var finishErr string
	if scoped, ok := handler.(RunScoped); ok && !cancelled {
		if err := scoped.Finish(ctx, op); err != nil {
			finishErr = fmt.Sprintf("handler teardown failed: %v", err)
		}
	}

	final := BulkStatusCompleted
	switch {
	case cancelled:
		final = BulkStatusCancelled
	case finishErr != "":
		final = BulkStatusFailed
	}
	if err := s.Repo.Finish(ctx, tenantID, id, final, finishErr); err != nil {
		s.Logger.Warn("failed to finalize operation",
			zap.String("operation_id", id.Hex()), zap.Error(err))
	}
	op.Status = final
	if final == BulkStatusCompleted {
		op.Progress = 100
	}

	s.Hub.Publish(ProgressUpdate{
		OperationID: id.Hex(),
		Status:      final,
		Progress:    op.Progress,
		Results:     op.Results,
	})
	s.notifyCompletion(ctx, op)
	s.emitCompletion(ctx, op)

	return op, nil
}

func (s *BulkOperationServiceImpl) applyTarget(ctx context.Context, handler TargetHandler, op *BulkOperation, targetID string) (TargetOutcome, *BulkError) {
	err := handler.Apply(ctx, op, targetID)
	if err == nil {
		return OutcomeSuccess, nil
	}
	if errors.Is(err, ErrSkipTarget) {
		return OutcomeSkipped, nil
	}
	return OutcomeFailed, &BulkError{TargetID: targetID, Message: err.Error()}
}

func (s *BulkOperationServiceImpl) fail(ctx context.Context, op *BulkOperation, reason string) (*BulkOperation, error) {
	if err := s.Repo.Finish(ctx, op.TenantID, op.ID, BulkStatusFailed, reason); err != nil {
		s.Logger.Warn("failed to mark operation failed",
			zap.String("operation_id", op.ID.Hex()), zap.Error(err))
	}
	op.Status = BulkStatusFailed
	op.Error = reason
	s.notifyCompletion(ctx, op)
	return op, nil
}

// notifyCompletion always fires, with severity escalated when targets
// failed. Delivery problems are logged, never surfaced.
func (s *BulkOperationServiceImpl) notifyCompletion(ctx context.Context, op *BulkOperation) {
	priority := "normal"
	if op.Results.Failed > 0 || op.Status == BulkStatusFailed {
		priority = "high"
	}

	err := s.Notifier.SendNotification(ctx, automation.NotificationRequest{
		TenantID:  op.TenantID,
		CompanyID: op.CompanyID,
		Type:      "bulk_operation",
		Priority:  priority,
		Title:     fmt.Sprintf("Bulk %s %s", op.Type, op.Status),
		Message: fmt.Sprintf("%d succeeded, %d failed, %d skipped of %d targets",
			op.Results.Successful, op.Results.Failed, op.Results.Skipped, len(op.TargetIDs)),
	})
	if err != nil {
		s.Logger.Warn("completion notification failed",
			zap.String("operation_id", op.ID.Hex()), zap.Error(err))
	}
}

func (s *BulkOperationServiceImpl) emitCompletion(ctx context.Context, op *BulkOperation) {
	if s.emitter == nil {
		return
	}
	_, err := s.emitter.Emit(ctx, &automation.AutomationEvent{
		TenantID:      op.TenantID,
		CompanyID:     op.CompanyID,
		Type:          automation.EventBulkOperationCompleted,
		Source:        "bulkops",
		CorrelationID: "bulk-" + op.ID.Hex(),
		Data: map[string]interface{}{
			"operationId": op.ID.Hex(),
			"type":        string(op.Type),
			"targetType":  op.TargetType,
			"status":      string(op.Status),
			"successful":  op.Results.Successful,
			"failed":      op.Results.Failed,
			"skipped":     op.Results.Skipped,
		},
	})
	if err != nil {
		s.Logger.Warn("completion event emit failed",
			zap.String("operation_id", op.ID.Hex()), zap.Error(err))
	}
}

// StartPlaybook creates and immediately runs a bulk operation on behalf of
// an automation rule. Automation is pre-approved unless the risk policy says
// otherwise.
func (s *BulkOperationServiceImpl) StartPlaybook(ctx context.Context, tenantID primitive.ObjectID, companyID *primitive.ObjectID, config map[string]interface{}) (string, error) {
	opType, _ := config["type"].(string)
	targetType, _ := config["target_type"].(string)
	if opType == "" || targetType == "" {
		return "", fmt.Errorf("playbook config requires type and target_type")
	}

	op := &BulkOperation{
		TenantID:   tenantID,
		CompanyID:  companyID,
		Type:       BulkActionType(opType),
		TargetType: targetType,
		TargetIDs:  targetList(config["target_ids"]),
		Source:     "automation",
	}
	if action, ok := config["action"].(map[string]interface{}); ok {
		op.Action = action
	}

	if err := s.Create(ctx, op); err != nil {
		return "", err
	}
	if op.Status == BulkStatusPendingApproval {
		// High-risk playbooks still wait for a human.
		return op.ID.Hex(), nil
	}
	if _, err := s.Execute(ctx, tenantID, op.ID); err != nil {
		return op.ID.Hex(), err
	}
	return op.ID.Hex(), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func targetList(v interface{}) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []interface{}:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
