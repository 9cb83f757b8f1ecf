package automation

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type executorFixture struct {
	executor   *ActionExecutorImpl
	executions *fakeExecutionRepo
	scheduled  *fakeScheduledRepo
	rules      *fakeRuleRepo
	records    *fakeRecordRepo
	notifier   *fakeNotifier
	chat       *fakeChat
	email      *fakeEmail
}

func newExecutorFixture() *executorFixture {
	f := &executorFixture{
		executions: &fakeExecutionRepo{},
		scheduled:  &fakeScheduledRepo{},
		rules:      &fakeRuleRepo{},
		records:    &fakeRecordRepo{},
		notifier:   &fakeNotifier{},
		chat:       &fakeChat{},
		email:      &fakeEmail{},
	}
	f.executor = &ActionExecutorImpl{
		Executions:   f.executions,
		Scheduled:    f.scheduled,
		Rules:        f.rules,
		Records:      f.records,
		Notifier:     f.notifier,
		Chat:         f.chat,
		Email:        f.email,
		logger:       zap.NewNop(),
		retryBackoff: 0,
	}
	return f
}

func testEvent(data map[string]interface{}) *AutomationEvent {
	return &AutomationEvent{
		ID:       primitive.NewObjectID(),
		TenantID: primitive.NewObjectID(),
		Type:     EventDocumentUploaded,
		Data:     data,
	}
}

func TestExecuteAbortsPipelineOnFailure(t *testing.T) {
	f := newExecutorFixture()
	f.notifier.failOn = "boom"

	rule := AutomationRule{
		ID:      "r1",
		Name:    "three step",
		Enabled: true,
		Actions: []AutomationAction{
			{ID: "a1", Type: ActionSendNotification, Order: 1, Config: map[string]interface{}{"title": "ok"}},
			{ID: "a2", Type: ActionSendNotification, Order: 2, Config: map[string]interface{}{"title": "boom"}},
			{ID: "a3", Type: ActionSendNotification, Order: 3, Config: map[string]interface{}{"title": "never"}},
		},
	}

	exec, err := f.executor.Execute(context.Background(), rule, testEvent(nil))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(exec.ActionResults) != 2 {
		t.Fatalf("expected 2 action results, got %d", len(exec.ActionResults))
	}
	if exec.ActionResults[0].Status != ActionResultSuccess {
		t.Errorf("first action: got %s, want SUCCESS", exec.ActionResults[0].Status)
	}
	if exec.ActionResults[1].Status != ActionResultFailed {
		t.Errorf("second action: got %s, want FAILED", exec.ActionResults[1].Status)
	}
	if exec.Status != ExecutionFailed {
		t.Errorf("execution status: got %s, want FAILED", exec.Status)
	}
	if exec.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	for _, n := range f.notifier.sent {
		if n.Title == "never" {
			t.Error("third action ran after pipeline abort")
		}
	}
}

func TestExecuteContinueOnError(t *testing.T) {
	f := newExecutorFixture()
	f.notifier.failOn = "boom"

	rule := AutomationRule{
		ID:      "r1",
		Name:    "tolerant",
		Enabled: true,
		Actions: []AutomationAction{
			{ID: "a1", Type: ActionSendNotification, Order: 1, Config: map[string]interface{}{"title": "ok"}},
			{ID: "a2", Type: ActionSendNotification, Order: 2, Config: map[string]interface{}{"title": "boom"}, ContinueOnError: true},
			{ID: "a3", Type: ActionSendNotification, Order: 3, Config: map[string]interface{}{"title": "after"}},
		},
	}

	exec, err := f.executor.Execute(context.Background(), rule, testEvent(nil))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(exec.ActionResults) != 3 {
		t.Fatalf("expected 3 action results, got %d", len(exec.ActionResults))
	}
	if exec.Status != ExecutionPartial {
		t.Errorf("execution status: got %s, want PARTIAL", exec.Status)
	}
	if exec.ActionResults[2].Status != ActionResultSuccess {
		t.Errorf("third action: got %s, want SUCCESS", exec.ActionResults[2].Status)
	}
}

func TestExecuteSkipsOnActionCondition(t *testing.T) {
	f := newExecutorFixture()

	rule := AutomationRule{
		ID:      "r1",
		Name:    "conditional step",
		Enabled: true,
		Actions: []AutomationAction{
			{
				ID: "a1", Type: ActionSendNotification, Order: 1,
				Config:    map[string]interface{}{"title": "guarded"},
				Condition: conditionPtr("severity", "eq", "high"),
			},
			{ID: "a2", Type: ActionSendNotification, Order: 2, Config: map[string]interface{}{"title": "always"}},
		},
	}

	exec, err := f.executor.Execute(context.Background(), rule, testEvent(map[string]interface{}{"severity": "low"}))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(exec.ActionResults) != 2 {
		t.Fatalf("expected 2 action results, got %d", len(exec.ActionResults))
	}
	if exec.ActionResults[0].Status != ActionResultSkipped {
		t.Errorf("guarded action: got %s, want SKIPPED", exec.ActionResults[0].Status)
	}
	if exec.ActionResults[1].Status != ActionResultSuccess {
		t.Errorf("second action: got %s, want SUCCESS", exec.ActionResults[1].Status)
	}
	if exec.Status != ExecutionCompleted {
		t.Errorf("execution status: got %s, want COMPLETED", exec.Status)
	}
}

func TestExecuteSchedulesDelayedAction(t *testing.T) {
	f := newExecutorFixture()

	rule := AutomationRule{
		ID:      "r1",
		Name:    "delayed reminder",
		Enabled: true,
		Actions: []AutomationAction{
			{
				ID: "a1", Type: ActionSendNotification, Order: 1,
				Config:       map[string]interface{}{"title": "later"},
				DelayMinutes: 30,
			},
		},
	}

	before := time.Now()
	exec, err := f.executor.Execute(context.Background(), rule, testEvent(nil))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(f.notifier.sent) != 0 {
		t.Fatalf("delayed action dispatched immediately")
	}
	if len(f.scheduled.pending) != 1 {
		t.Fatalf("expected 1 scheduled action, got %d", len(f.scheduled.pending))
	}
	sa := f.scheduled.pending[0]
	if sa.RunAt.Before(before.Add(29 * time.Minute)) {
		t.Errorf("run_at too early: %v", sa.RunAt)
	}
	if sa.Action.DelayMinutes != 0 {
		t.Error("persisted action kept its delay, would re-defer on revival")
	}

	if len(exec.ActionResults) != 1 || exec.ActionResults[0].Status != ActionResultSuccess {
		t.Fatalf("scheduling not reported as SUCCESS: %+v", exec.ActionResults)
	}
	if scheduledFlag, _ := exec.ActionResults[0].Result["scheduled"].(bool); !scheduledFlag {
		t.Error("result missing scheduled flag")
	}
	if exec.Status != ExecutionCompleted {
		t.Errorf("execution status: got %s, want COMPLETED", exec.Status)
	}
}

func TestExecuteRetriesWhenEnabled(t *testing.T) {
	f := newExecutorFixture()

	attempts := 0
	f.executor.Chat = chatFunc(func(ctx context.Context, msg ChatMessage) error {
		attempts++
		if attempts < 3 {
			return context.DeadlineExceeded
		}
		return nil
	})

	rule := AutomationRule{
		ID:      "r1",
		Name:    "flaky chat",
		Enabled: true,
		Settings: RuleSettings{
			RetryOnFailure: true,
			MaxRetries:     3,
		},
		Actions: []AutomationAction{
			{ID: "a1", Type: ActionSendSlack, Order: 1, Config: map[string]interface{}{"title": "sync failed"}},
		},
	}

	exec, err := f.executor.Execute(context.Background(), rule, testEvent(nil))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if exec.Status != ExecutionCompleted {
		t.Errorf("execution status: got %s, want COMPLETED", exec.Status)
	}
}

func TestReviveDueDispatchesAndAppends(t *testing.T) {
	f := newExecutorFixture()

	execID := primitive.NewObjectID()
	tenantID := primitive.NewObjectID()
	f.executions.execs = append(f.executions.execs, AutomationExecution{
		ID:       execID,
		TenantID: tenantID,
		RuleID:   "r1",
		Status:   ExecutionCompleted,
	})
	f.scheduled.pending = append(f.scheduled.pending, ScheduledAction{
		ID:          "sa1",
		TenantID:    tenantID,
		ExecutionID: execID,
		RuleID:      "r1",
		Action: AutomationAction{
			ID: "a1", Type: ActionSendNotification,
			Config: map[string]interface{}{"title": "due now"},
		},
		RunAt:  time.Now().Add(-time.Minute),
		Status: ScheduledPending,
	})

	if err := f.executor.ReviveDue(context.Background(), time.Now()); err != nil {
		t.Fatalf("ReviveDue returned error: %v", err)
	}

	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.notifier.sent))
	}
	if f.scheduled.done["sa1"] != nil {
		t.Errorf("scheduled action marked failed: %v", f.scheduled.done["sa1"])
	}
	if len(f.executions.execs[0].ActionResults) != 1 {
		t.Fatalf("result not appended to owning execution")
	}
	if f.executions.execs[0].ActionResults[0].Status != ActionResultSuccess {
		t.Errorf("appended result: got %s, want SUCCESS", f.executions.execs[0].ActionResults[0].Status)
	}
}

type chatFunc func(ctx context.Context, msg ChatMessage) error

func (f chatFunc) Send(ctx context.Context, msg ChatMessage) error { return f(ctx, msg) }
