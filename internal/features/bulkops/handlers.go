package bulkops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go-fundadmin/internal/config"
	"go-fundadmin/internal/features/record"

	"github.com/xuri/excelize/v2"
)

// ErrSkipTarget marks a target the handler deliberately left untouched
// (already in the desired state, nothing to do). Counted as skipped, not
// failed.
var ErrSkipTarget = errors.New("target skipped")

// TargetHandler applies one bulk action to a single target. Opaque to the
// orchestrator beyond success, skip or failure.
type TargetHandler interface {
	Apply(ctx context.Context, op *BulkOperation, targetID string) error
}

// RunScoped handlers carry per-operation state; the orchestrator calls Begin
// before the first target and Finish after the last.
type RunScoped interface {
	Begin(ctx context.Context, op *BulkOperation) error
	Finish(ctx context.Context, op *BulkOperation) error
}

type HandlerRegistry map[BulkActionType]TargetHandler

func NewHandlerRegistry(records record.RecordRepository, cfg *config.Config) HandlerRegistry {
	return HandlerRegistry{
		BulkApproveDocuments: &statusHandler{records: records, status: "approved"},
		BulkRejectDocuments:  &statusHandler{records: records, status: "rejected"},
		BulkArchiveDocuments: &statusHandler{records: records, status: "archived"},
		BulkDeleteDocuments:  &deleteHandler{records: records},
		BulkTagDocuments:     &tagHandler{records: records},
		BulkAssignOwner:      &assignHandler{records: records},
		BulkRemapAccounts:    &remapHandler{records: records},
		BulkSyncToLedger:     &ledgerSyncHandler{records: records},
		BulkExportDocuments:  newExportHandler(records, cfg.ExportDir),
	}
}

type statusHandler struct {
	records record.RecordRepository
	status  string
}

func (h *statusHandler) Apply(ctx context.Context, op *BulkOperation, targetID string) error {
	return h.records.Update(ctx, op.TenantID, op.TargetType, targetID, map[string]interface{}{
		"status": h.status,
	})
}

type deleteHandler struct {
	records record.RecordRepository
}

func (h *deleteHandler) Apply(ctx context.Context, op *BulkOperation, targetID string) error {
	return h.records.SoftDelete(ctx, op.TenantID, op.TargetType, targetID)
}

type tagHandler struct {
	records record.RecordRepository
}

func (h *tagHandler) Apply(ctx context.Context, op *BulkOperation, targetID string) error {
	tags, ok := op.Action["tags"].([]interface{})
	if !ok || len(tags) == 0 {
		return fmt.Errorf("tag operation requires action.tags")
	}
	return h.records.Update(ctx, op.TenantID, op.TargetType, targetID, map[string]interface{}{
		"tags": tags,
	})
}

type assignHandler struct {
	records record.RecordRepository
}

func (h *assignHandler) Apply(ctx context.Context, op *BulkOperation, targetID string) error {
	ownerID, _ := op.Action["owner_id"].(string)
	if ownerID == "" {
		return fmt.Errorf("assign operation requires action.owner_id")
	}
	return h.records.Update(ctx, op.TenantID, op.TargetType, targetID, map[string]interface{}{
		"assigned_to": ownerID,
	})
}

// remapHandler rewrites a record's account code through the operation's
// mapping table. Targets whose code has no mapping entry are skipped.
type remapHandler struct {
	records record.RecordRepository
}

func (h *remapHandler) Apply(ctx context.Context, op *BulkOperation, targetID string) error {
	mapping, ok := op.Action["mapping"].(map[string]interface{})
	if !ok || len(mapping) == 0 {
		return fmt.Errorf("remap operation requires action.mapping")
	}

	doc, err := h.records.Get(ctx, op.TenantID, op.TargetType, targetID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("target not found")
	}

	current, _ := doc["account_code"].(string)
	replacement, found := mapping[current]
	if !found {
		return ErrSkipTarget
	}
	return h.records.Update(ctx, op.TenantID, op.TargetType, targetID, map[string]interface{}{
		"account_code":          replacement,
		"account_remapped_from": current,
	})
}

// ledgerSyncHandler marks a record as pushed to the external ledger. Records
// already synced are skipped rather than re-pushed.
type ledgerSyncHandler struct {
	records record.RecordRepository
}

func (h *ledgerSyncHandler) Apply(ctx context.Context, op *BulkOperation, targetID string) error {
	doc, err := h.records.Get(ctx, op.TenantID, op.TargetType, targetID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("target not found")
	}
	if status, _ := doc["sync_status"].(string); status == "synced" {
		return ErrSkipTarget
	}
	return h.records.Update(ctx, op.TenantID, op.TargetType, targetID, map[string]interface{}{
		"sync_status": "synced",
		"synced_at":   time.Now(),
	})
}

// exportHandler streams target records into an xlsx workbook, one row per
// target, and writes the file when the run finishes.
type exportHandler struct {
	records record.RecordRepository
	dir     string

	mu   sync.Mutex
	runs map[string]*exportRun
}

type exportRun struct {
	file    *excelize.File
	columns []string
	row     int
}

func newExportHandler(records record.RecordRepository, dir string) *exportHandler {
	return &exportHandler{
		records: records,
		dir:     dir,
		runs:    make(map[string]*exportRun),
	}
}

func (h *exportHandler) Begin(ctx context.Context, op *BulkOperation) error {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	run := &exportRun{file: excelize.NewFile(), row: 1}
	for _, col := range stringColumns(op.Action["columns"]) {
		run.columns = append(run.columns, col)
	}
	if len(run.columns) == 0 {
		run.columns = []string{"_id", "status", "created_at"}
	}
	for i, col := range run.columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		run.file.SetCellValue("Sheet1", cell, col)
	}

	h.mu.Lock()
	h.runs[op.ID.Hex()] = run
	h.mu.Unlock()
	return nil
}

func (h *exportHandler) Apply(ctx context.Context, op *BulkOperation, targetID string) error {
	h.mu.Lock()
	run := h.runs[op.ID.Hex()]
	h.mu.Unlock()
	if run == nil {
		return fmt.Errorf("export run not started")
	}

	doc, err := h.records.Get(ctx, op.TenantID, op.TargetType, targetID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("target not found")
	}

	run.row++
	for i, col := range run.columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, run.row)
		run.file.SetCellValue("Sheet1", cell, fmt.Sprintf("%v", doc[col]))
	}
	return nil
}

func (h *exportHandler) Finish(ctx context.Context, op *BulkOperation) error {
	h.mu.Lock()
	run := h.runs[op.ID.Hex()]
	delete(h.runs, op.ID.Hex())
	h.mu.Unlock()
	if run == nil {
		return nil
	}

	path := filepath.Join(h.dir, fmt.Sprintf("bulk-export-%s.xlsx", op.ID.Hex()))
	if err := run.file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

func stringColumns(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
