package bulkops

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BulkActionType is the closed set of operations the orchestrator can run
// against a batch of targets.
type BulkActionType string

const (
	BulkApproveDocuments BulkActionType = "APPROVE_DOCUMENTS"
	BulkRejectDocuments  BulkActionType = "REJECT_DOCUMENTS"
	BulkDeleteDocuments  BulkActionType = "DELETE_DOCUMENTS"
	BulkSyncToLedger     BulkActionType = "SYNC_TO_LEDGER"
	BulkRemapAccounts    BulkActionType = "REMAP_ACCOUNTS"
	BulkTagDocuments     BulkActionType = "TAG_DOCUMENTS"
	BulkAssignOwner      BulkActionType = "ASSIGN_OWNER"
	BulkArchiveDocuments BulkActionType = "ARCHIVE_DOCUMENTS"
	BulkExportDocuments  BulkActionType = "EXPORT_DOCUMENTS"
)

type BulkStatus string

const (
	BulkStatusPendingApproval BulkStatus = "PENDING_APPROVAL"
	BulkStatusPending         BulkStatus = "PENDING"
	BulkStatusRunning         BulkStatus = "RUNNING"
	BulkStatusCompleted       BulkStatus = "COMPLETED"
	BulkStatusFailed          BulkStatus = "FAILED"
	BulkStatusCancelled       BulkStatus = "CANCELLED"
)

type BulkError struct {
	TargetID string `json:"target_id" bson:"target_id"`
	Message  string `json:"message" bson:"message"`
}

type BulkResults struct {
	Successful int         `json:"successful" bson:"successful"`
	Failed     int         `json:"failed" bson:"failed"`
	Skipped    int         `json:"skipped" bson:"skipped"`
	Errors     []BulkError `json:"errors,omitempty" bson:"errors,omitempty"`
}

// BulkOperation is never deleted; history ages out via TTL on created_at.
type BulkOperation struct {
	ID               primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	TenantID         primitive.ObjectID     `json:"tenant_id" bson:"tenant_id"`
	CompanyID        *primitive.ObjectID    `json:"company_id,omitempty" bson:"company_id,omitempty"`
	Type             BulkActionType         `json:"type" bson:"type"`
	TargetType       string                 `json:"target_type" bson:"target_type"`
	TargetIDs        []string               `json:"target_ids" bson:"target_ids"`
	Action           map[string]interface{} `json:"action,omitempty" bson:"action,omitempty"`
	Status           BulkStatus             `json:"status" bson:"status"`
	Progress         int                    `json:"progress" bson:"progress"`
	Results          BulkResults            `json:"results" bson:"results"`
	RequiresApproval bool                   `json:"requires_approval" bson:"requires_approval"`
	ApprovedBy       *primitive.ObjectID    `json:"approved_by,omitempty" bson:"approved_by,omitempty"`
	ApprovedAt       *time.Time             `json:"approved_at,omitempty" bson:"approved_at,omitempty"`
	CreatedBy        primitive.ObjectID     `json:"created_by,omitempty" bson:"created_by,omitempty"`
	Source           string                 `json:"source,omitempty" bson:"source,omitempty"`
	ScheduledFor     *time.Time             `json:"scheduled_for,omitempty" bson:"scheduled_for,omitempty"`
	Error            string                 `json:"error,omitempty" bson:"error,omitempty"`
	StartedAt        *time.Time             `json:"started_at,omitempty" bson:"started_at,omitempty"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at" bson:"updated_at"`
}

func (s BulkStatus) Terminal() bool {
	return s == BulkStatusCompleted || s == BulkStatusFailed || s == BulkStatusCancelled
}
