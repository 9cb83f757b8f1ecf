package recurring

import (
	"time"

	"go-fundadmin/internal/features/bulkops"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ScheduleType string

const (
	ScheduleDaily     ScheduleType = "daily"
	ScheduleWeekly    ScheduleType = "weekly"
	ScheduleMonthly   ScheduleType = "monthly"
	ScheduleQuarterly ScheduleType = "quarterly"
	ScheduleYearly    ScheduleType = "yearly"
)

// Schedule describes when a job fires. Time is "HH:MM" in the schedule's
// timezone (IANA name, default UTC). DayOfWeek follows time.Weekday
// numbering (0 = Sunday).
type Schedule struct {
	Type        ScheduleType `json:"type" bson:"type"`
	Time        string       `json:"time" bson:"time"`
	DayOfWeek   *int         `json:"day_of_week,omitempty" bson:"day_of_week,omitempty"`
	DayOfMonth  *int         `json:"day_of_month,omitempty" bson:"day_of_month,omitempty"`
	MonthOfYear *int         `json:"month_of_year,omitempty" bson:"month_of_year,omitempty"`
	Timezone    string       `json:"timezone,omitempty" bson:"timezone,omitempty"`
}

// SelectionCriteria picks the job's targets at run time: either a fixed id
// list, or a filter expression evaluated against the target collection when
// the job fires.
type SelectionCriteria struct {
	TargetIDs []string `json:"target_ids,omitempty" bson:"target_ids,omitempty"`
	Filter    string   `json:"filter,omitempty" bson:"filter,omitempty"`
	Limit     int64    `json:"limit,omitempty" bson:"limit,omitempty"`
}

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped"
)

type RecurringJob struct {
	ID              primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	TenantID        primitive.ObjectID     `json:"tenant_id" bson:"tenant_id"`
	CompanyID       *primitive.ObjectID    `json:"company_id,omitempty" bson:"company_id,omitempty"`
	Name            string                 `json:"name" bson:"name"`
	Description     string                 `json:"description,omitempty" bson:"description,omitempty"`
	Enabled         bool                   `json:"enabled" bson:"enabled"`
	ActionType      bulkops.BulkActionType `json:"action_type" bson:"action_type"`
	TargetType      string                 `json:"target_type" bson:"target_type"`
	Action          map[string]interface{} `json:"action,omitempty" bson:"action,omitempty"`
	Selection       SelectionCriteria      `json:"selection" bson:"selection"`
	Schedule        Schedule               `json:"schedule" bson:"schedule"`
	NotifyOnFailure bool                   `json:"notify_on_failure" bson:"notify_on_failure"`
	LastRunAt       *time.Time             `json:"last_run_at,omitempty" bson:"last_run_at,omitempty"`
	LastRunStatus   RunStatus              `json:"last_run_status,omitempty" bson:"last_run_status,omitempty"`
	LastRunError    string                 `json:"last_run_error,omitempty" bson:"last_run_error,omitempty"`
	NextRunAt       time.Time              `json:"next_run_at" bson:"next_run_at"`
	CreatedBy       primitive.ObjectID     `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt       time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at" bson:"updated_at"`
}
