package bulkops

import (
	"context"
	"fmt"
	"sync"
	"testing"

	common_models "go-fundadmin/internal/common/models"
	"go-fundadmin/internal/features/automation"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memBulkRepo struct {
	mu       sync.Mutex
	ops      map[primitive.ObjectID]*BulkOperation
	progress []int
}

func newMemBulkRepo() *memBulkRepo {
	return &memBulkRepo{ops: make(map[primitive.ObjectID]*BulkOperation)}
}

func (r *memBulkRepo) Create(ctx context.Context, op *BulkOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if op.ID.IsZero() {
		op.ID = primitive.NewObjectID()
	}
	clone := *op
	r.ops[op.ID] = &clone
	return nil
}

func (r *memBulkRepo) Get(ctx context.Context, tenantID, id primitive.ObjectID) (*BulkOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.ops[id]
	if !ok {
		return nil, nil
	}
	clone := *op
	return &clone, nil
}

func (r *memBulkRepo) List(ctx context.Context, tenantID primitive.ObjectID, companyID *primitive.ObjectID, status BulkStatus, limit int64) ([]BulkOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []BulkOperation
	for _, op := range r.ops {
		if op.TenantID == tenantID && (status == "" || op.Status == status) {
			out = append(out, *op)
		}
	}
	return out, nil
}

func (r *memBulkRepo) TransitionStatus(ctx context.Context, tenantID, id primitive.ObjectID, from []BulkStatus, to BulkStatus, set bson.M) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.ops[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if op.Status == s {
			op.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *memBulkRepo) RecordTarget(ctx context.Context, tenantID, id primitive.ObjectID, progress int, outcome TargetOutcome, targetErr *BulkError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	op := r.ops[id]
	if progress > op.Progress {
		op.Progress = progress
	}
	r.progress = append(r.progress, op.Progress)
	switch outcome {
	case OutcomeSuccess:
		op.Results.Successful++
	case OutcomeFailed:
		op.Results.Failed++
		if targetErr != nil {
			op.Results.Errors = append(op.Results.Errors, *targetErr)
		}
	case OutcomeSkipped:
		op.Results.Skipped++
	}
	return nil
}

func (r *memBulkRepo) Finish(ctx context.Context, tenantID, id primitive.ObjectID, status BulkStatus, opErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	op := r.ops[id]
	op.Status = status
	if status == BulkStatusCompleted {
		op.Progress = 100
	}
	op.Error = opErr
	return nil
}

func (r *memBulkRepo) GetStatus(ctx context.Context, tenantID, id primitive.ObjectID) (BulkStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ops[id].Status, nil
}

func (r *memBulkRepo) setStatus(id primitive.ObjectID, status BulkStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[id].Status = status
}

type handlerFunc func(ctx context.Context, op *BulkOperation, targetID string) error

func (f handlerFunc) Apply(ctx context.Context, op *BulkOperation, targetID string) error {
	return f(ctx, op, targetID)
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []automation.NotificationRequest
}

func (n *captureNotifier) SendNotification(ctx context.Context, req automation.NotificationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, req)
	return nil
}

type noopAudit struct{}

func (noopAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (noopAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

type bulkFixture struct {
	service  *BulkOperationServiceImpl
	repo     *memBulkRepo
	notifier *captureNotifier
}

func newBulkFixture(handler TargetHandler) *bulkFixture {
	repo := newMemBulkRepo()
	notifier := &captureNotifier{}
	svc := &BulkOperationServiceImpl{
		Repo:         repo,
		Handlers:     HandlerRegistry{BulkTagDocuments: handler, BulkApproveDocuments: handler, BulkDeleteDocuments: handler},
		Notifier:     notifier,
		AuditService: noopAudit{},
		Hub:          NewProgressHub(),
		Logger:       zap.NewNop(),
	}
	return &bulkFixture{service: svc, repo: repo, notifier: notifier}
}

func targetIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("doc-%03d", i)
	}
	return ids
}

func TestCreateAppliesApprovalPolicy(t *testing.T) {
	f := newBulkFixture(handlerFunc(func(ctx context.Context, op *BulkOperation, id string) error { return nil }))
	tenantID := primitive.NewObjectID()

	del := &BulkOperation{TenantID: tenantID, Type: BulkDeleteDocuments, TargetType: "documents", TargetIDs: targetIDs(3)}
	if err := f.service.Create(context.Background(), del); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if del.Status != BulkStatusPendingApproval || !del.RequiresApproval {
		t.Errorf("delete op: status %s, requires_approval %v; want PENDING_APPROVAL, true", del.Status, del.RequiresApproval)
	}

	tag := &BulkOperation{TenantID: tenantID, Type: BulkTagDocuments, TargetType: "documents",
		TargetIDs: []string{"a", "b", "a", ""}, Action: map[string]interface{}{"tags": []interface{}{"x"}}}
	if err := f.service.Create(context.Background(), tag); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if tag.Status != BulkStatusPending {
		t.Errorf("tag op: status %s, want PENDING", tag.Status)
	}
	if len(tag.TargetIDs) != 2 {
		t.Errorf("targets not deduped: %v", tag.TargetIDs)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newBulkFixture(handlerFunc(func(ctx context.Context, op *BulkOperation, id string) error { return nil }))
	tenantID := primitive.NewObjectID()

	cases := []*BulkOperation{
		{Type: BulkTagDocuments, TargetType: "documents", TargetIDs: targetIDs(1)},         // no tenant
		{TenantID: tenantID, Type: "NOT_A_TYPE", TargetType: "documents", TargetIDs: targetIDs(1)},
		{TenantID: tenantID, Type: BulkTagDocuments, TargetIDs: targetIDs(1)},              // no target type
		{TenantID: tenantID, Type: BulkTagDocuments, TargetType: "documents"},              // no targets
	}
	for i, op := range cases {
		if err := f.service.Create(context.Background(), op); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestExecutePartialSuccess(t *testing.T) {
	failing := map[string]bool{"doc-002": true, "doc-005": true, "doc-008": true}
	skipped := map[string]bool{"doc-009": true}
	f := newBulkFixture(handlerFunc(func(ctx context.Context, op *BulkOperation, id string) error {
		if failing[id] {
			return fmt.Errorf("record locked")
		}
		if skipped[id] {
			return ErrSkipTarget
		}
		return nil
	}))
	tenantID := primitive.NewObjectID()

	op := &BulkOperation{TenantID: tenantID, Type: BulkApproveDocuments, TargetType: "documents", TargetIDs: targetIDs(10)}
	if err := f.service.Create(context.Background(), op); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	result, err := f.service.Execute(context.Background(), tenantID, op.ID)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if result.Status != BulkStatusCompleted {
		t.Errorf("status: got %s, want COMPLETED despite failures", result.Status)
	}
	r := result.Results
	if r.Successful+r.Failed+r.Skipped != 10 {
		t.Errorf("result counters do not sum to target count: %+v", r)
	}
	if r.Failed != 3 || r.Skipped != 1 || r.Successful != 6 {
		t.Errorf("results: %+v, want 6/3/1", r)
	}
	if len(r.Errors) != 3 {
		t.Errorf("expected 3 recorded errors, got %d", len(r.Errors))
	}
	if result.Progress != 100 {
		t.Errorf("final progress: got %d, want 100", result.Progress)
	}

	// Severity escalates when targets failed.
	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected 1 completion notification, got %d", len(f.notifier.sent))
	}
	if f.notifier.sent[0].Priority != "high" {
		t.Errorf("notification priority: got %s, want high", f.notifier.sent[0].Priority)
	}
}

func TestExecuteProgressNeverDecreases(t *testing.T) {
	f := newBulkFixture(handlerFunc(func(ctx context.Context, op *BulkOperation, id string) error { return nil }))
	tenantID := primitive.NewObjectID()

	op := &BulkOperation{TenantID: tenantID, Type: BulkApproveDocuments, TargetType: "documents", TargetIDs: targetIDs(7)}
	if err := f.service.Create(context.Background(), op); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := f.service.Execute(context.Background(), tenantID, op.ID); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(f.repo.progress) != 7 {
		t.Fatalf("expected 7 progress writes, got %d", len(f.repo.progress))
	}
	for i := 1; i < len(f.repo.progress); i++ {
		if f.repo.progress[i] < f.repo.progress[i-1] {
			t.Fatalf("progress decreased: %v", f.repo.progress)
		}
	}
	if last := f.repo.progress[len(f.repo.progress)-1]; last != 100 {
		t.Errorf("last incremental progress: got %d, want 100", last)
	}
}

func TestExecuteHonorsCancellationBetweenBatches(t *testing.T) {
	var f *bulkFixture
	var opID primitive.ObjectID
	applied := 0

	f = newBulkFixture(handlerFunc(func(ctx context.Context, op *BulkOperation, id string) error {
		applied++
		if applied == 25 {
			// Concurrent cancel lands mid-run; the current batch still
			// finishes.
			f.repo.setStatus(opID, BulkStatusCancelled)
		}
		return nil
	}))
	tenantID := primitive.NewObjectID()

	op := &BulkOperation{TenantID: tenantID, Type: BulkApproveDocuments, TargetType: "documents", TargetIDs: targetIDs(60)}
	if err := f.service.Create(context.Background(), op); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	opID = op.ID

	// 60 targets trip the approval policy; approve before running.
	if op.Status != BulkStatusPendingApproval {
		t.Fatalf("status after Create: got %s, want PENDING_APPROVAL", op.Status)
	}
	if err := f.service.Approve(context.Background(), tenantID, op.ID, primitive.NewObjectID()); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	result, err := f.service.Execute(context.Background(), tenantID, op.ID)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if applied != 25 {
		t.Errorf("expected exactly the first batch (25) processed, got %d", applied)
	}
	if result.Status != BulkStatusCancelled {
		t.Errorf("status: got %s, want CANCELLED", result.Status)
	}
}

func TestExecuteRejectsWrongStatus(t *testing.T) {
	f := newBulkFixture(handlerFunc(func(ctx context.Context, op *BulkOperation, id string) error { return nil }))
	tenantID := primitive.NewObjectID()

	op := &BulkOperation{TenantID: tenantID, Type: BulkDeleteDocuments, TargetType: "documents", TargetIDs: targetIDs(3)}
	if err := f.service.Create(context.Background(), op); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	// Delete requires approval, so the op sits in PENDING_APPROVAL.
	if _, err := f.service.Execute(context.Background(), tenantID, op.ID); err == nil {
		t.Fatal("expected error executing an unapproved operation")
	}

	userID := primitive.NewObjectID()
	if err := f.service.Approve(context.Background(), tenantID, op.ID, userID); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	if _, err := f.service.Execute(context.Background(), tenantID, op.ID); err != nil {
		t.Fatalf("Execute after approval returned error: %v", err)
	}
	// Double approval must fail.
	if err := f.service.Approve(context.Background(), tenantID, op.ID, userID); err == nil {
		t.Fatal("expected error approving a finished operation")
	}
}

type captureEmitter struct {
	events []*automation.AutomationEvent
}

func (e *captureEmitter) Emit(ctx context.Context, event *automation.AutomationEvent) ([]automation.AutomationExecution, error) {
	e.events = append(e.events, event)
	return nil, nil
}

func TestExecuteEmitsCompletionEvent(t *testing.T) {
	f := newBulkFixture(handlerFunc(func(ctx context.Context, op *BulkOperation, id string) error { return nil }))
	emitter := &captureEmitter{}
	f.service.SetEmitter(emitter)
	tenantID := primitive.NewObjectID()

	op := &BulkOperation{TenantID: tenantID, Type: BulkApproveDocuments, TargetType: "documents", TargetIDs: targetIDs(2)}
	if err := f.service.Create(context.Background(), op); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := f.service.Execute(context.Background(), tenantID, op.ID); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 completion event, got %d", len(emitter.events))
	}
	event := emitter.events[0]
	if event.Type != automation.EventBulkOperationCompleted {
		t.Errorf("event type: got %s", event.Type)
	}
	if event.CorrelationID == "" {
		t.Error("completion event missing correlation id")
	}
	if got := event.Data["successful"]; got != 2 {
		t.Errorf("event successful count: got %v, want 2", got)
	}
}

func TestStartPlaybook(t *testing.T) {
	applied := 0
	f := newBulkFixture(handlerFunc(func(ctx context.Context, op *BulkOperation, id string) error {
		applied++
		return nil
	}))
	tenantID := primitive.NewObjectID()

	opID, err := f.service.StartPlaybook(context.Background(), tenantID, nil, map[string]interface{}{
		"type":        string(BulkApproveDocuments),
		"target_type": "documents",
		"target_ids":  []interface{}{"doc-1", "doc-2"},
	})
	if err != nil {
		t.Fatalf("StartPlaybook returned error: %v", err)
	}
	if opID == "" {
		t.Fatal("expected operation id")
	}
	if applied != 2 {
		t.Errorf("expected immediate execution of 2 targets, got %d", applied)
	}

	// High-risk playbooks stop at the approval gate.
	applied = 0
	if _, err := f.service.StartPlaybook(context.Background(), tenantID, nil, map[string]interface{}{
		"type":        string(BulkDeleteDocuments),
		"target_type": "documents",
		"target_ids":  []interface{}{"doc-1"},
	}); err != nil {
		t.Fatalf("StartPlaybook returned error: %v", err)
	}
	if applied != 0 {
		t.Errorf("high-risk playbook ran without approval (%d targets)", applied)
	}
}
