package recurring

import (
	"context"
	"fmt"
	"time"

	common_models "go-fundadmin/internal/common/models"
	"go-fundadmin/internal/features/audit"
	"go-fundadmin/internal/features/automation"
	"go-fundadmin/internal/features/bulkops"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type RecurringJobService interface {
	Create(ctx context.Context, job *RecurringJob) error
	Get(ctx context.Context, tenantID, id primitive.ObjectID) (*RecurringJob, error)
	List(ctx context.Context, tenantID primitive.ObjectID, limit int64) ([]RecurringJob, error)
	Update(ctx context.Context, job *RecurringJob) error
	Delete(ctx context.Context, tenantID, id primitive.ObjectID) error

	// ExecuteJob materializes the job into a bulk operation and runs it.
	ExecuteJob(ctx context.Context, tenantID, id primitive.ObjectID) (*RecurringJob, error)

	// RunDue is the poller entry point.
	RunDue(ctx context.Context, now time.Time) error

	SetEmitter(emitter bulkops.EventEmitter)
}

type RecurringJobServiceImpl struct {
	Repo         RecurringJobRepository
	Resolver     TargetResolver
	Bulk         bulkops.BulkOperationService
	AuditService audit.AuditService
	Logger       *zap.Logger

	emitter bulkops.EventEmitter
	now     func() time.Time
}

func NewRecurringJobService(
	repo RecurringJobRepository,
	resolver TargetResolver,
	bulk bulkops.BulkOperationService,
	auditService audit.AuditService,
	logger *zap.Logger,
) RecurringJobService {
	return &RecurringJobServiceImpl{
		Repo:         repo,
		Resolver:     resolver,
		Bulk:         bulk,
		AuditService: auditService,
		Logger:       logger,
		now:          time.Now,
	}
}

func (s *RecurringJobServiceImpl) SetEmitter(emitter bulkops.EventEmitter) {
	s.emitter = emitter
}

func (s *RecurringJobServiceImpl) Create(ctx context.Context, job *RecurringJob) error {
	if err := s.validate(job); err != nil {
		return err
	}

	next, err := CalculateNextRun(job.Schedule, s.now())
	if err != nil {
		return err
	}
	job.NextRunAt = next

	if err := s.Repo.Create(ctx, job); err != nil {
		return err
	}
	s.AuditService.LogChange(ctx, common_models.AuditActionRecurring, "recurring_jobs", job.ID.Hex(), map[string]common_models.Change{
		"job": {New: job},
	})
	return nil
}

func (s *RecurringJobServiceImpl) Get(ctx context.Context, tenantID, id primitive.ObjectID) (*RecurringJob, error) {
	return s.Repo.Get(ctx, tenantID, id)
}

func (s *RecurringJobServiceImpl) List(ctx context.Context, tenantID primitive.ObjectID, limit int64) ([]RecurringJob, error) {
	return s.Repo.List(ctx, tenantID, limit)
}

func (s *RecurringJobServiceImpl) Update(ctx context.Context, job *RecurringJob) error {
	if err := s.validate(job); err != nil {
		return err
	}
	old, _ := s.Repo.Get(ctx, job.TenantID, job.ID)

	// Schedule edits take effect immediately.
	next, err := CalculateNextRun(job.Schedule, s.now())
	if err != nil {
		return err
	}
	job.NextRunAt = next

	if err := s.Repo.Update(ctx, job); err != nil {
		return err
	}
	s.AuditService.LogChange(ctx, common_models.AuditActionRecurring, "recurring_jobs", job.ID.Hex(), map[string]common_models.Change{
		"job": {Old: old, New: job},
	})
	return nil
}

func (s *RecurringJobServiceImpl) Delete(ctx context.Context, tenantID, id primitive.ObjectID) error {
	old, _ := s.Repo.Get(ctx, tenantID, id)

	if err := s.Repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.AuditService.LogChange(ctx, common_models.AuditActionRecurring, "recurring_jobs", id.Hex(), map[string]common_models.Change{
		"job": {Old: old, New: "DELETED"},
	})
	return nil
}

// ExecuteJob resolves the selection, creates a pre-approved bulk operation
// and runs it inline. The job's run state advances whatever the outcome; the
// next wake-up is always computed from the schedule, never from the failure.
func (s *RecurringJobServiceImpl) ExecuteJob(ctx context.Context, tenantID, id primitive.ObjectID) (*RecurringJob, error) {
	job, err := s.Repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job not found")
	}

	ranAt := s.now()
	status, runErr := s.runOnce(ctx, job)

	next, err := CalculateNextRun(job.Schedule, ranAt)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.AdvanceRunState(ctx, tenantID, id, ranAt, status, runErr, next); err != nil {
		s.Logger.Warn("failed to advance job run state",
			zap.String("job_id", id.Hex()), zap.Error(err))
	}
	job.LastRunAt = &ranAt
	job.LastRunStatus = status
	job.LastRunError = runErr
	job.NextRunAt = next

	if status == RunFailed {
		s.reportFailure(ctx, job, runErr)
	}
	return job, nil
}

func (s *RecurringJobServiceImpl) runOnce(ctx context.Context, job *RecurringJob) (RunStatus, string) {
	targets, err := s.Resolver.Resolve(ctx, job)
	if err != nil {
		return RunFailed, err.Error()
	}
	if len(targets) == 0 {
		return RunSkipped, ""
	}

	// Automation is pre-approved by job creation.
	op := &bulkops.BulkOperation{
		TenantID:   job.TenantID,
		CompanyID:  job.CompanyID,
		Type:       job.ActionType,
		TargetType: job.TargetType,
		TargetIDs:  targets,
		Action:     job.Action,
		CreatedBy:  job.CreatedBy,
		Source:     "recurring:" + job.ID.Hex(),
	}
	if err := s.Bulk.Create(ctx, op); err != nil {
		return RunFailed, err.Error()
	}
	if op.Status == bulkops.BulkStatusPendingApproval {
		// The risk policy outranks pre-approval for high-risk types; the
		// operation waits for a human and the run counts as succeeded.
		return RunSucceeded, ""
	}

	result, err := s.Bulk.Execute(ctx, job.TenantID, op.ID)
	if err != nil {
		return RunFailed, err.Error()
	}
	if result.Status == bulkops.BulkStatusFailed {
		return RunFailed, result.Error
	}
	return RunSucceeded, ""
}

func (s *RecurringJobServiceImpl) reportFailure(ctx context.Context, job *RecurringJob, runErr string) {
	s.Logger.Error("recurring job failed",
		zap.String("job_id", job.ID.Hex()),
		zap.String("job_name", job.Name),
		zap.String("error", runErr))

	if s.emitter == nil || !job.NotifyOnFailure {
		return
	}
	_, err := s.emitter.Emit(ctx, &automation.AutomationEvent{
		TenantID:      job.TenantID,
		CompanyID:     job.CompanyID,
		Type:          automation.EventRecurringJobFailed,
		Source:        "recurring",
		CorrelationID: fmt.Sprintf("job-%s-%d", job.ID.Hex(), job.LastRunAt.Unix()),
		Data: map[string]interface{}{
			"jobId":   job.ID.Hex(),
			"jobName": job.Name,
			"error":   runErr,
		},
	})
	if err != nil {
		s.Logger.Warn("failed to emit job failure event",
			zap.String("job_id", job.ID.Hex()), zap.Error(err))
	}
}

// RunDue executes every job whose wake-up has passed. One job's failure
// never blocks the rest.
func (s *RecurringJobServiceImpl) RunDue(ctx context.Context, now time.Time) error {
	due, err := s.Repo.DueBefore(ctx, now, 100)
	if err != nil {
		return err
	}
	for _, job := range due {
		if _, err := s.ExecuteJob(ctx, job.TenantID, job.ID); err != nil {
			s.Logger.Error("due job execution failed",
				zap.String("job_id", job.ID.Hex()), zap.Error(err))
		}
	}
	return nil
}

func (s *RecurringJobServiceImpl) validate(job *RecurringJob) error {
	if job.TenantID.IsZero() {
		return fmt.Errorf("tenant_id is required")
	}
	if job.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if job.ActionType == "" || job.TargetType == "" {
		return fmt.Errorf("action_type and target_type are required")
	}
	if len(job.Selection.TargetIDs) == 0 && job.Selection.Filter == "" {
		return fmt.Errorf("selection requires target_ids or a filter")
	}
	return job.Schedule.Validate()
}
