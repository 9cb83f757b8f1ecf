package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go-fundadmin/internal/features/record"
	"go-fundadmin/pkg/condition"
	"go-fundadmin/pkg/interpolate"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Collaborator interfaces. Implementations live in their own features; the
// executor only sees success or failure.

type NotificationRequest struct {
	TenantID  primitive.ObjectID
	CompanyID *primitive.ObjectID
	Type      string
	Priority  string
	Title     string
	Message   string
	Channels  []string
	ActionURL string
}

type Notifier interface {
	SendNotification(ctx context.Context, req NotificationRequest) error
}

type ChatMessage struct {
	TenantID  primitive.ObjectID
	CompanyID *primitive.ObjectID
	Channel   string // slack | teams | both
	Category  string
	Priority  string
	Title     string
	Message   string
	ActionURL string
}

type ChatSender interface {
	Send(ctx context.Context, msg ChatMessage) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, to []string, subject, body string) error
}

// PlaybookStarter kicks off a bulk operation from a rule action and returns
// the operation id.
type PlaybookStarter interface {
	StartPlaybook(ctx context.Context, tenantID primitive.ObjectID, companyID *primitive.ObjectID, config map[string]interface{}) (string, error)
}

// ActionExecutor runs a matched rule's ordered action pipeline.
type ActionExecutor interface {
	Execute(ctx context.Context, rule AutomationRule, event *AutomationEvent) (*AutomationExecution, error)
	ReviveDue(ctx context.Context, now time.Time) error
	SetPlaybookStarter(p PlaybookStarter)
}

type ActionExecutorImpl struct {
	Executions ExecutionRepository
	Scheduled  ScheduledActionRepository
	Rules      RuleRepository
	Records    record.RecordRepository
	Notifier   Notifier
	Chat       ChatSender
	Email      EmailSender
	playbooks  PlaybookStarter

	httpClient *http.Client
	logger     *zap.Logger

	// retryBackoff is the base delay between retry attempts; tests zero it.
	retryBackoff time.Duration
}

func NewActionExecutor(
	executions ExecutionRepository,
	scheduled ScheduledActionRepository,
	rules RuleRepository,
	records record.RecordRepository,
	notifier Notifier,
	chat ChatSender,
	email EmailSender,
	logger *zap.Logger,
) ActionExecutor {
	return &ActionExecutorImpl{
		Executions:   executions,
		Scheduled:    scheduled,
		Rules:        rules,
		Records:      records,
		Notifier:     notifier,
		Chat:         chat,
		Email:        email,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
		retryBackoff: time.Second,
	}
}

// SetPlaybookStarter is wired after construction; the bulk orchestrator
// depends on the engine for completion events, so the dependency cannot go
// through the constructor.
func (e *ActionExecutorImpl) SetPlaybookStarter(p PlaybookStarter) {
	e.playbooks = p
}

// Execute walks the rule's actions by ascending order. Per-action conditions
// skip without aborting; delayed actions are persisted for later revival;
// a failure aborts the rest of the pipeline unless the action opts into
// continue_on_error. The returned execution always has CompletedAt set.
func (e *ActionExecutorImpl) Execute(ctx context.Context, rule AutomationRule, event *AutomationEvent) (*AutomationExecution, error) {
	exec := &AutomationExecution{
		TenantID:      event.TenantID,
		RuleID:        rule.ID,
		EventID:       event.ID,
		CorrelationID: event.CorrelationID,
		Status:        ExecutionRunning,
		StartedAt:     time.Now(),
	}
	if err := e.Executions.Insert(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	actions := make([]AutomationAction, len(rule.Actions))
	copy(actions, rule.Actions)
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Order < actions[j].Order })

	aborted := false
	for _, action := range actions {
		if action.Condition != nil && !condition.Evaluate(*action.Condition, event.Data) {
			exec.ActionResults = append(exec.ActionResults, ActionResult{
				ActionID:   action.ID,
				Status:     ActionResultSkipped,
				ExecutedAt: time.Now(),
			})
			continue
		}

		if action.DelayMinutes > 0 {
			runAt := time.Now().Add(time.Duration(action.DelayMinutes) * time.Minute)
			result := e.scheduleAction(ctx, exec, action, event, runAt)
			exec.ActionResults = append(exec.ActionResults, result)
			if result.Status == ActionResultFailed && !action.ContinueOnError {
				aborted = true
				exec.Error = result.Error
				break
			}
			continue
		}

		resultData, err := e.dispatchWithRetry(ctx, exec, rule.Settings, action, event)
		if err != nil {
			exec.ActionResults = append(exec.ActionResults, ActionResult{
				ActionID:   action.ID,
				Status:     ActionResultFailed,
				Error:      err.Error(),
				ExecutedAt: time.Now(),
			})
			if !action.ContinueOnError {
				aborted = true
				exec.Error = err.Error()
				break
			}
			continue
		}

		exec.ActionResults = append(exec.ActionResults, ActionResult{
			ActionID:   action.ID,
			Status:     ActionResultSuccess,
			Result:     resultData,
			ExecutedAt: time.Now(),
		})
	}

	exec.Status = finalStatus(exec.ActionResults, aborted)
	now := time.Now()
	exec.CompletedAt = &now

	if err := e.Executions.Finalize(ctx, exec); err != nil {
		e.logger.Warn("failed to finalize execution",
			zap.String("execution_id", exec.ID.Hex()), zap.Error(err))
	}

	// Bookkeeping is best-effort; a persistence failure here must not fail
	// the execution.
	if err := e.Rules.RecordExecution(ctx, event.TenantID, rule.ID, now); err != nil {
		e.logger.Warn("failed to record rule execution",
			zap.String("rule_id", rule.ID), zap.Error(err))
	}

	return exec, nil
}

func finalStatus(results []ActionResult, aborted bool) ExecutionStatus {
	if aborted {
		return ExecutionFailed
	}
	for _, r := range results {
		if r.Status == ActionResultFailed {
			return ExecutionPartial
		}
	}
	return ExecutionCompleted
}

// scheduleAction persists the durable timer record for a delayed action and
// reports the scheduling itself as the action's result.
func (e *ActionExecutorImpl) scheduleAction(ctx context.Context, exec *AutomationExecution, action AutomationAction, event *AutomationEvent, runAt time.Time) ActionResult {
	deferred := action
	deferred.DelayMinutes = 0

	sa := &ScheduledAction{
		ID:          uuid.NewString(),
		TenantID:    event.TenantID,
		CompanyID:   event.CompanyID,
		ExecutionID: exec.ID,
		RuleID:      exec.RuleID,
		EventID:     event.ID,
		Action:      deferred,
		EventData:   event.Data,
		RunAt:       runAt,
	}
	if err := e.Scheduled.Insert(ctx, sa); err != nil {
		return ActionResult{
			ActionID:   action.ID,
			Status:     ActionResultFailed,
			Error:      fmt.Sprintf("failed to schedule delayed action: %v", err),
			ExecutedAt: time.Now(),
		}
	}
	return ActionResult{
		ActionID:   action.ID,
		Status:     ActionResultSuccess,
		Result:     map[string]interface{}{"scheduled": true, "run_at": runAt},
		ExecutedAt: time.Now(),
	}
}

func (e *ActionExecutorImpl) dispatchWithRetry(ctx context.Context, exec *AutomationExecution, settings RuleSettings, action AutomationAction, event *AutomationEvent) (map[string]interface{}, error) {
	attempts := 1
	if settings.RetryOnFailure {
		attempts = settings.MaxRetries
		if attempts <= 0 {
			attempts = 3
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := e.dispatch(ctx, exec, action, event)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt < attempts {
			e.logger.Debug("retrying action",
				zap.String("action_id", action.ID), zap.Int("attempt", attempt), zap.Error(err))
			time.Sleep(time.Duration(attempt) * e.retryBackoff)
		}
	}
	return nil, lastErr
}

// dispatch interpolates the action config against the event payload and
// calls out to the action's collaborator.
func (e *ActionExecutorImpl) dispatch(ctx context.Context, exec *AutomationExecution, action AutomationAction, event *AutomationEvent) (map[string]interface{}, error) {
	config := interpolate.Config(action.Config, event.Data)

	switch action.Type {
	case ActionCreateTask:
		return e.createTask(ctx, config, event)
	case ActionSendNotification:
		return e.sendNotification(ctx, config, event, stringValue(config, "priority", "normal"))
	case ActionSendEmail:
		return e.sendEmail(ctx, config)
	case ActionSendSlack:
		return e.sendChat(ctx, config, event, "slack")
	case ActionSendTeams:
		return e.sendChat(ctx, config, event, "teams")
	case ActionStartPlaybook:
		return e.startPlaybook(ctx, config, event)
	case ActionAssignUser:
		return e.assignUser(ctx, config, event)
	case ActionEscalate:
		return e.escalate(ctx, config, event)
	case ActionCreateApprovalRequest:
		return e.createApprovalRequest(ctx, config, event)
	case ActionUpdateStatus:
		return e.updateStatus(ctx, config, event)
	case ActionWebhook:
		return e.callWebhook(ctx, config, event)
	case ActionScheduleReminder:
		return e.scheduleReminder(ctx, exec, config, event)
	default:
		return nil, fmt.Errorf("unsupported action type: %s", action.Type)
	}
}

func (e *ActionExecutorImpl) createTask(ctx context.Context, config map[string]interface{}, event *AutomationEvent) (map[string]interface{}, error) {
	title := stringValue(config, "title", "")
	if title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	data := map[string]interface{}{
		"title":       title,
		"description": stringValue(config, "description", ""),
		"priority":    stringValue(config, "priority", "normal"),
		"status":      "open",
		"source":      "automation",
	}
	if companyID := event.CompanyID; companyID != nil {
		data["company_id"] = *companyID
	}
	if assignee := stringValue(config, "assigned_to", ""); assignee != "" {
		data["assigned_to"] = assignee
	}
	if dueDate := stringValue(config, "due_date", ""); dueDate != "" {
		data["due_date"] = dueDate
	}

	id, err := e.Records.Create(ctx, event.TenantID, "tasks", data)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return map[string]interface{}{"task_id": id}, nil
}

func (e *ActionExecutorImpl) sendNotification(ctx context.Context, config map[string]interface{}, event *AutomationEvent, priority string) (map[string]interface{}, error) {
	title := stringValue(config, "title", "")
	if title == "" {
		return nil, fmt.Errorf("notification title is required")
	}

	req := NotificationRequest{
		TenantID:  event.TenantID,
		CompanyID: event.CompanyID,
		Type:      stringValue(config, "type", "automation"),
		Priority:  priority,
		Title:     title,
		Message:   stringValue(config, "message", ""),
		Channels:  stringList(config["channels"]),
		ActionURL: stringValue(config, "action_url", ""),
	}
	if err := e.Notifier.SendNotification(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to send notification: %w", err)
	}
	return map[string]interface{}{"notified": true}, nil
}

func (e *ActionExecutorImpl) sendEmail(ctx context.Context, config map[string]interface{}) (map[string]interface{}, error) {
	to := stringValue(config, "to", "")
	if to == "" {
		return nil, fmt.Errorf("email recipient (to) is required")
	}

	recipients := strings.Split(to, ",")
	for i := range recipients {
		recipients[i] = strings.TrimSpace(recipients[i])
	}

	subject := stringValue(config, "subject", "")
	body := stringValue(config, "body", "")
	if err := e.Email.SendEmail(ctx, recipients, subject, body); err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	return map[string]interface{}{"recipients": len(recipients)}, nil
}

func (e *ActionExecutorImpl) sendChat(ctx context.Context, config map[string]interface{}, event *AutomationEvent, channel string) (map[string]interface{}, error) {
	msg := ChatMessage{
		TenantID:  event.TenantID,
		CompanyID: event.CompanyID,
		Channel:   channel,
		Category:  stringValue(config, "category", "automation"),
		Priority:  stringValue(config, "priority", "normal"),
		Title:     stringValue(config, "title", ""),
		Message:   stringValue(config, "message", ""),
		ActionURL: stringValue(config, "action_url", ""),
	}
	if msg.Title == "" {
		return nil, fmt.Errorf("chat message title is required")
	}
	if err := e.Chat.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("chat delivery failed: %w", err)
	}
	return map[string]interface{}{"channel": channel}, nil
}

func (e *ActionExecutorImpl) startPlaybook(ctx context.Context, config map[string]interface{}, event *AutomationEvent) (map[string]interface{}, error) {
	if e.playbooks == nil {
		return nil, fmt.Errorf("playbook starter not configured")
	}
	opID, err := e.playbooks.StartPlaybook(ctx, event.TenantID, event.CompanyID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to start playbook: %w", err)
	}
	return map[string]interface{}{"operation_id": opID}, nil
}

func (e *ActionExecutorImpl) assignUser(ctx context.Context, config map[string]interface{}, event *AutomationEvent) (map[string]interface{}, error) {
	targetType := stringValue(config, "target_type", "documents")
	recordID := stringValue(config, "record_id", "")
	userID := stringValue(config, "user_id", "")
	if recordID == "" || userID == "" {
		return nil, fmt.Errorf("assign_user requires record_id and user_id")
	}

	err := e.Records.Update(ctx, event.TenantID, targetType, recordID, map[string]interface{}{
		"assigned_to": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assign user: %w", err)
	}
	return map[string]interface{}{"assigned_to": userID}, nil
}

func (e *ActionExecutorImpl) escalate(ctx context.Context, config map[string]interface{}, event *AutomationEvent) (map[string]interface{}, error) {
	// An escalation is an urgent notification plus a chat-ops ping; the chat
	// leg is best-effort.
	result, err := e.sendNotification(ctx, config, event, "urgent")
	if err != nil {
		return nil, err
	}
	msg := ChatMessage{
		TenantID:  event.TenantID,
		CompanyID: event.CompanyID,
		Channel:   "both",
		Category:  "escalation",
		Priority:  "urgent",
		Title:     stringValue(config, "title", ""),
		Message:   stringValue(config, "message", ""),
	}
	if err := e.Chat.Send(ctx, msg); err != nil {
		e.logger.Warn("escalation chat delivery failed", zap.Error(err))
	}
	return result, nil
}

func (e *ActionExecutorImpl) createApprovalRequest(ctx context.Context, config map[string]interface{}, event *AutomationEvent) (map[string]interface{}, error) {
	subject := stringValue(config, "subject", "")
	if subject == "" {
		return nil, fmt.Errorf("approval request subject is required")
	}

	data := map[string]interface{}{
		"subject":     subject,
		"description": stringValue(config, "description", ""),
		"approver_id": stringValue(config, "approver_id", ""),
		"status":      "pending",
		"source":      "automation",
	}
	if event.CompanyID != nil {
		data["company_id"] = *event.CompanyID
	}

	id, err := e.Records.Create(ctx, event.TenantID, "approval_requests", data)
	if err != nil {
		return nil, fmt.Errorf("failed to create approval request: %w", err)
	}
	return map[string]interface{}{"approval_request_id": id}, nil
}

func (e *ActionExecutorImpl) updateStatus(ctx context.Context, config map[string]interface{}, event *AutomationEvent) (map[string]interface{}, error) {
	targetType := stringValue(config, "target_type", "documents")
	recordID := stringValue(config, "record_id", "")
	status := stringValue(config, "status", "")
	if recordID == "" || status == "" {
		return nil, fmt.Errorf("update_status requires record_id and status")
	}

	err := e.Records.Update(ctx, event.TenantID, targetType, recordID, map[string]interface{}{
		"status": status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	return map[string]interface{}{"status": status}, nil
}

func (e *ActionExecutorImpl) callWebhook(ctx context.Context, config map[string]interface{}, event *AutomationEvent) (map[string]interface{}, error) {
	url := stringValue(config, "url", "")
	if url == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	method := strings.ToUpper(stringValue(config, "method", "POST"))

	payload := map[string]interface{}{
		"event":     event.Type,
		"event_id":  event.ID.Hex(),
		"data":      event.Data,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if body, ok := config["body"].(map[string]interface{}); ok {
		payload = body
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if headers, ok := config["headers"].(map[string]interface{}); ok {
		for key, value := range headers {
			req.Header.Set(key, fmt.Sprintf("%v", value))
		}
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook call failed: %w", err)
	}
	defer resp.Body.Close()

	result := map[string]interface{}{"status": resp.StatusCode, "ok": resp.StatusCode < 400}
	if resp.StatusCode >= 400 {
		return result, fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}
	return result, nil
}

// scheduleReminder persists a deferred notification; the reminder fires via
// the same durable-timer path as delayed actions.
func (e *ActionExecutorImpl) scheduleReminder(ctx context.Context, exec *AutomationExecution, config map[string]interface{}, event *AutomationEvent) (map[string]interface{}, error) {
	minutes := intValue(config, "reminder_minutes", 60)
	runAt := time.Now().Add(time.Duration(minutes) * time.Minute)

	sa := &ScheduledAction{
		ID:          uuid.NewString(),
		TenantID:    event.TenantID,
		CompanyID:   event.CompanyID,
		ExecutionID: exec.ID,
		RuleID:      exec.RuleID,
		EventID:     event.ID,
		Action: AutomationAction{
			ID:     uuid.NewString(),
			Type:   ActionSendNotification,
			Config: config,
		},
		EventData: event.Data,
		RunAt:     runAt,
	}
	if err := e.Scheduled.Insert(ctx, sa); err != nil {
		return nil, fmt.Errorf("failed to schedule reminder: %w", err)
	}
	return map[string]interface{}{"scheduled": true, "run_at": runAt}, nil
}

// ReviveDue runs scheduled actions whose time has come. Each action gets a
// single attempt; its result is appended to the owning execution.
func (e *ActionExecutorImpl) ReviveDue(ctx context.Context, now time.Time) error {
	due, err := e.Scheduled.DueBefore(ctx, now, 100)
	if err != nil {
		return err
	}

	for _, sa := range due {
		event := &AutomationEvent{
			ID:        sa.EventID,
			TenantID:  sa.TenantID,
			CompanyID: sa.CompanyID,
			Data:      sa.EventData,
		}
		exec := &AutomationExecution{
			ID:       sa.ExecutionID,
			TenantID: sa.TenantID,
			RuleID:   sa.RuleID,
		}

		resultData, dispatchErr := e.dispatch(ctx, exec, sa.Action, event)

		result := ActionResult{
			ActionID:   sa.Action.ID,
			Status:     ActionResultSuccess,
			Result:     resultData,
			ExecutedAt: time.Now(),
		}
		if dispatchErr != nil {
			result.Status = ActionResultFailed
			result.Error = dispatchErr.Error()
			e.logger.Warn("delayed action failed",
				zap.String("scheduled_id", sa.ID), zap.Error(dispatchErr))
		}

		if err := e.Executions.AppendResult(ctx, sa.TenantID, sa.ExecutionID, result); err != nil {
			e.logger.Warn("failed to append delayed action result",
				zap.String("scheduled_id", sa.ID), zap.Error(err))
		}
		if err := e.Scheduled.MarkDone(ctx, sa.ID, dispatchErr); err != nil {
			e.logger.Warn("failed to mark scheduled action done",
				zap.String("scheduled_id", sa.ID), zap.Error(err))
		}
	}
	return nil
}

func stringValue(config map[string]interface{}, key, fallback string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intValue(config map[string]interface{}, key string, fallback int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
