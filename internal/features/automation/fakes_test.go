package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	common_models "go-fundadmin/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory doubles shared by the engine tests.

type fakeRuleRepo struct {
	mu       sync.Mutex
	rules    []AutomationRule
	recorded []string
}

func (f *fakeRuleRepo) ListForTenant(ctx context.Context, tenantID primitive.ObjectID) ([]AutomationRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]AutomationRule, 0, len(f.rules))
	for _, r := range f.rules {
		if r.TenantID == tenantID || r.TenantID.IsZero() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) GetByID(ctx context.Context, tenantID primitive.ObjectID, ruleID string) (*AutomationRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rules {
		if f.rules[i].ID == ruleID {
			r := f.rules[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeRuleRepo) Create(ctx context.Context, rule *AutomationRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rule.ID == "" {
		rule.ID = primitive.NewObjectID().Hex()
	}
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeRuleRepo) Update(ctx context.Context, rule *AutomationRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rules {
		if f.rules[i].ID == rule.ID {
			f.rules[i] = *rule
			return nil
		}
	}
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeRuleRepo) Delete(ctx context.Context, tenantID primitive.ObjectID, ruleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rules {
		if f.rules[i].ID == ruleID {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeRuleRepo) Enable(ctx context.Context, tenantID primitive.ObjectID, ruleID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rules {
		if f.rules[i].ID == ruleID {
			f.rules[i].Enabled = enabled
			return nil
		}
	}
	return nil
}

func (f *fakeRuleRepo) RecordExecution(ctx context.Context, tenantID primitive.ObjectID, ruleID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, ruleID)
	for i := range f.rules {
		if f.rules[i].ID == ruleID {
			t := at
			f.rules[i].LastExecutedAt = &t
			f.rules[i].ExecutionCount++
		}
	}
	return nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []AutomationEvent
}

func (f *fakeEventRepo) Insert(ctx context.Context, event *AutomationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, tenantID, id primitive.ObjectID) (*AutomationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.events {
		if f.events[i].ID == id {
			e := f.events[i]
			return &e, nil
		}
	}
	return nil, nil
}

type fakeExecutionRepo struct {
	mu    sync.Mutex
	execs []AutomationExecution
}

func (f *fakeExecutionRepo) Insert(ctx context.Context, exec *AutomationExecution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if exec.ID.IsZero() {
		exec.ID = primitive.NewObjectID()
	}
	f.execs = append(f.execs, *exec)
	return nil
}

func (f *fakeExecutionRepo) Finalize(ctx context.Context, exec *AutomationExecution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.execs {
		if f.execs[i].ID == exec.ID && f.execs[i].CompletedAt == nil {
			f.execs[i] = *exec
			return nil
		}
	}
	return nil
}

func (f *fakeExecutionRepo) AppendResult(ctx context.Context, tenantID, executionID primitive.ObjectID, result ActionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.execs {
		if f.execs[i].ID == executionID {
			f.execs[i].ActionResults = append(f.execs[i].ActionResults, result)
			return nil
		}
	}
	return fmt.Errorf("execution not found")
}

func (f *fakeExecutionRepo) FindByRuleAndEvent(ctx context.Context, tenantID primitive.ObjectID, ruleID string, eventID primitive.ObjectID) (*AutomationExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.execs {
		if f.execs[i].RuleID == ruleID && f.execs[i].EventID == eventID {
			e := f.execs[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (f *fakeExecutionRepo) FindByRuleAndCorrelation(ctx context.Context, tenantID primitive.ObjectID, ruleID, correlationID string) (*AutomationExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.execs {
		if f.execs[i].RuleID == ruleID && f.execs[i].CorrelationID == correlationID {
			e := f.execs[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (f *fakeExecutionRepo) CountForRuleSince(ctx context.Context, tenantID primitive.ObjectID, ruleID string, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for i := range f.execs {
		if f.execs[i].RuleID == ruleID && !f.execs[i].StartedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeExecutionRepo) ListByRule(ctx context.Context, tenantID primitive.ObjectID, ruleID string, limit int64) ([]AutomationExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []AutomationExecution
	for i := range f.execs {
		if f.execs[i].RuleID == ruleID {
			out = append(out, f.execs[i])
		}
	}
	return out, nil
}

func (f *fakeExecutionRepo) ListByEvent(ctx context.Context, tenantID, eventID primitive.ObjectID) ([]AutomationExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []AutomationExecution
	for i := range f.execs {
		if f.execs[i].EventID == eventID {
			out = append(out, f.execs[i])
		}
	}
	return out, nil
}

type fakeScheduledRepo struct {
	mu      sync.Mutex
	pending []ScheduledAction
	done    map[string]error
}

func (f *fakeScheduledRepo) Insert(ctx context.Context, sa *ScheduledAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sa.Status = ScheduledPending
	f.pending = append(f.pending, *sa)
	return nil
}

func (f *fakeScheduledRepo) DueBefore(ctx context.Context, now time.Time, limit int64) ([]ScheduledAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []ScheduledAction
	for _, sa := range f.pending {
		if sa.Status == ScheduledPending && !sa.RunAt.After(now) {
			due = append(due, sa)
		}
	}
	return due, nil
}

func (f *fakeScheduledRepo) MarkDone(ctx context.Context, id string, execErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done == nil {
		f.done = make(map[string]error)
	}
	f.done[id] = execErr
	for i := range f.pending {
		if f.pending[i].ID == id {
			f.pending[i].Status = ScheduledDone
			if execErr != nil {
				f.pending[i].Status = ScheduledFailed
			}
		}
	}
	return nil
}

type fakeRecordRepo struct {
	mu      sync.Mutex
	created []map[string]interface{}
	updated []map[string]interface{}
}

func (f *fakeRecordRepo) Create(ctx context.Context, tenantID primitive.ObjectID, targetType string, data map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := map[string]interface{}{"_target": targetType}
	for k, v := range data {
		doc[k] = v
	}
	f.created = append(f.created, doc)
	return primitive.NewObjectID().Hex(), nil
}

func (f *fakeRecordRepo) Get(ctx context.Context, tenantID primitive.ObjectID, targetType, id string) (map[string]interface{}, error) {
	return nil, nil
}

func (f *fakeRecordRepo) Update(ctx context.Context, tenantID primitive.ObjectID, targetType, id string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := map[string]interface{}{"_target": targetType, "_id": id}
	for k, v := range fields {
		doc[k] = v
	}
	f.updated = append(f.updated, doc)
	return nil
}

func (f *fakeRecordRepo) SoftDelete(ctx context.Context, tenantID primitive.ObjectID, targetType, id string) error {
	return nil
}

func (f *fakeRecordRepo) List(ctx context.Context, tenantID primitive.ObjectID, targetType string, filter map[string]interface{}, limit int64) ([]map[string]interface{}, error) {
	return nil, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []NotificationRequest
	failOn string // fail when Title matches
}

func (f *fakeNotifier) SendNotification(ctx context.Context, req NotificationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && req.Title == f.failOn {
		return fmt.Errorf("notifier down")
	}
	f.sent = append(f.sent, req)
	return nil
}

type fakeChat struct {
	mu   sync.Mutex
	sent []ChatMessage
}

func (f *fakeChat) Send(ctx context.Context, msg ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

type fakeEmail struct {
	mu   sync.Mutex
	sent [][]string
}

func (f *fakeEmail) SendEmail(ctx context.Context, to []string, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

type fakeAudit struct{}

func (fakeAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (fakeAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}
