package automation

import (
	"time"

	"go-fundadmin/pkg/condition"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType is the closed set of domain events producers can emit.
type EventType string

const (
	EventDocumentUploaded       EventType = "DOCUMENT_UPLOADED"
	EventDocumentClassified     EventType = "DOCUMENT_CLASSIFIED"
	EventDocumentRejected       EventType = "DOCUMENT_REJECTED"
	EventInvoiceReceived        EventType = "INVOICE_RECEIVED"
	EventInvoiceOverdue         EventType = "INVOICE_OVERDUE"
	EventPaymentReceived        EventType = "PAYMENT_RECEIVED"
	EventPaymentFailed          EventType = "PAYMENT_FAILED"
	EventApprovalRequested      EventType = "APPROVAL_REQUESTED"
	EventApprovalGranted        EventType = "APPROVAL_GRANTED"
	EventApprovalRejected       EventType = "APPROVAL_REJECTED"
	EventTaskCreated            EventType = "TASK_CREATED"
	EventTaskCompleted          EventType = "TASK_COMPLETED"
	EventTaskOverdue            EventType = "TASK_OVERDUE"
	EventDeadlineApproaching    EventType = "DEADLINE_APPROACHING"
	EventDeadlineMissed         EventType = "DEADLINE_MISSED"
	EventSyncCompleted          EventType = "SYNC_COMPLETED"
	EventSyncFailed             EventType = "SYNC_FAILED"
	EventLedgerMismatch         EventType = "LEDGER_MISMATCH"
	EventContactCreated         EventType = "CONTACT_CREATED"
	EventCompanyOnboarded       EventType = "COMPANY_ONBOARDED"
	EventFundClosed             EventType = "FUND_CLOSED"
	EventVATReturnDue           EventType = "VAT_RETURN_DUE"
	EventComplianceAlert        EventType = "COMPLIANCE_ALERT"
	EventBulkOperationCompleted EventType = "BULK_OPERATION_COMPLETED"
	EventRecurringJobFailed     EventType = "RECURRING_JOB_FAILED"
)

// AutomationEvent is an immutable fact. The engine assigns ID and Timestamp
// on emit; events are retained with a TTL for audit and never mutated.
type AutomationEvent struct {
	ID            primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	TenantID      primitive.ObjectID     `json:"tenant_id" bson:"tenant_id"`
	CompanyID     *primitive.ObjectID    `json:"company_id,omitempty" bson:"company_id,omitempty"`
	Type          EventType              `json:"type" bson:"type"`
	Source        string                 `json:"source" bson:"source"`
	Timestamp     time.Time              `json:"timestamp" bson:"timestamp"`
	Data          map[string]interface{} `json:"data" bson:"data"`
	CorrelationID string                 `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time              `json:"created_at" bson:"created_at"`
}

type ActionType string

const (
	ActionCreateTask            ActionType = "CREATE_TASK"
	ActionSendNotification      ActionType = "SEND_NOTIFICATION"
	ActionSendEmail             ActionType = "SEND_EMAIL"
	ActionSendSlack             ActionType = "SEND_SLACK"
	ActionSendTeams             ActionType = "SEND_TEAMS"
	ActionStartPlaybook         ActionType = "START_PLAYBOOK"
	ActionAssignUser            ActionType = "ASSIGN_USER"
	ActionEscalate              ActionType = "ESCALATE"
	ActionCreateApprovalRequest ActionType = "CREATE_APPROVAL_REQUEST"
	ActionUpdateStatus          ActionType = "UPDATE_STATUS"
	ActionWebhook               ActionType = "WEBHOOK"
	ActionScheduleReminder      ActionType = "SCHEDULE_REMINDER"
)

// AutomationAction is one step of a rule's pipeline. Order is unique within
// a rule and gap-tolerant; execution proceeds strictly by ascending order.
type AutomationAction struct {
	ID              string                 `json:"id" bson:"id"`
	Type            ActionType             `json:"type" bson:"type"`
	Order           int                    `json:"order" bson:"order"`
	Config          map[string]interface{} `json:"config" bson:"config"`
	Condition       *condition.Condition   `json:"condition,omitempty" bson:"condition,omitempty"`
	DelayMinutes    int                    `json:"delay_minutes,omitempty" bson:"delay_minutes,omitempty"`
	ContinueOnError bool                   `json:"continue_on_error" bson:"continue_on_error"`
}

type RuleTrigger struct {
	Event      EventType             `json:"event" bson:"event"`
	Conditions []condition.Condition `json:"conditions,omitempty" bson:"conditions,omitempty"`
}

type RuleSettings struct {
	RunOnce              bool `json:"run_once" bson:"run_once"`
	CooldownMinutes      int  `json:"cooldown_minutes" bson:"cooldown_minutes"`
	MaxExecutionsPerHour int  `json:"max_executions_per_hour" bson:"max_executions_per_hour"`
	RetryOnFailure       bool `json:"retry_on_failure" bson:"retry_on_failure"`
	MaxRetries           int  `json:"max_retries" bson:"max_retries"`
}

// AutomationRule is the declarative trigger-condition-action configuration.
// Rule ids are strings so tenant-stored rules can override a built-in by
// sharing its id.
type AutomationRule struct {
	ID          string              `json:"id" bson:"rule_id"`
	TenantID    primitive.ObjectID  `json:"tenant_id,omitempty" bson:"tenant_id,omitempty"`
	CompanyID   *primitive.ObjectID `json:"company_id,omitempty" bson:"company_id,omitempty"`
	Name        string              `json:"name" bson:"name"`
	Description string              `json:"description,omitempty" bson:"description,omitempty"`
	Enabled     bool                `json:"enabled" bson:"enabled"`
	BuiltIn     bool                `json:"built_in" bson:"-"`
	Trigger     RuleTrigger         `json:"trigger" bson:"trigger"`
	Actions     []AutomationAction  `json:"actions" bson:"actions"`
	Settings    RuleSettings        `json:"settings" bson:"settings"`

	// Execution bookkeeping, merged from rule_stats at read time for
	// built-ins and kept best-effort for stored rules.
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty" bson:"last_executed_at,omitempty"`
	ExecutionCount int64      `json:"execution_count" bson:"execution_count"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "PENDING"
	ExecutionRunning   ExecutionStatus = "RUNNING"
	ExecutionCompleted ExecutionStatus = "COMPLETED"
	ExecutionFailed    ExecutionStatus = "FAILED"
	ExecutionPartial   ExecutionStatus = "PARTIAL"
)

type ActionResultStatus string

const (
	ActionResultSuccess ActionResultStatus = "SUCCESS"
	ActionResultFailed  ActionResultStatus = "FAILED"
	ActionResultSkipped ActionResultStatus = "SKIPPED"
)

type ActionResult struct {
	ActionID   string                 `json:"action_id" bson:"action_id"`
	Status     ActionResultStatus     `json:"status" bson:"status"`
	Result     map[string]interface{} `json:"result,omitempty" bson:"result,omitempty"`
	Error      string                 `json:"error,omitempty" bson:"error,omitempty"`
	ExecutedAt time.Time              `json:"executed_at" bson:"executed_at"`
}

// AutomationExecution records the outcome of one (rule, event) pairing. It
// is mutated only by the action executor and immutable once CompletedAt is
// set.
type AutomationExecution struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID      primitive.ObjectID `json:"tenant_id" bson:"tenant_id"`
	RuleID        string             `json:"rule_id" bson:"rule_id"`
	EventID       primitive.ObjectID `json:"event_id" bson:"event_id"`
	CorrelationID string             `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Status        ExecutionStatus    `json:"status" bson:"status"`
	StartedAt     time.Time          `json:"started_at" bson:"started_at"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	ActionResults []ActionResult     `json:"action_results" bson:"action_results"`
	Error         string             `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}

type ScheduledActionStatus string

const (
	ScheduledPending ScheduledActionStatus = "pending"
	ScheduledDone    ScheduledActionStatus = "done"
	ScheduledFailed  ScheduledActionStatus = "failed"
)

// ScheduledAction is a durable "wake me at T" record for a delayed action.
// The engine never sleeps; the timer poller revives due records.
type ScheduledAction struct {
	ID          string                 `json:"id" bson:"_id"`
	TenantID    primitive.ObjectID     `json:"tenant_id" bson:"tenant_id"`
	CompanyID   *primitive.ObjectID    `json:"company_id,omitempty" bson:"company_id,omitempty"`
	ExecutionID primitive.ObjectID     `json:"execution_id" bson:"execution_id"`
	RuleID      string                 `json:"rule_id" bson:"rule_id"`
	EventID     primitive.ObjectID     `json:"event_id" bson:"event_id"`
	Action      AutomationAction       `json:"action" bson:"action"`
	EventData   map[string]interface{} `json:"event_data" bson:"event_data"`
	RunAt       time.Time              `json:"run_at" bson:"run_at"`
	Status      ScheduledActionStatus  `json:"status" bson:"status"`
	Error       string                 `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at" bson:"created_at"`
}
