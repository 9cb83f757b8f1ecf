package bulkops

// High-risk action types always go through approval, whatever the target
// count.
var highRiskTypes = map[BulkActionType]bool{
	BulkDeleteDocuments: true,
	BulkSyncToLedger:    true,
	BulkRemapAccounts:   true,
}

const (
	approvalTargetThreshold = 50
	approveRejectThreshold  = 10
)

// ShouldRequireApproval applies the risk policy: high-risk types always,
// any operation over 50 targets, bulk approve/reject over 10 targets,
// otherwise whatever the caller asked for.
func ShouldRequireApproval(opType BulkActionType, targetCount int, requested bool) bool {
	if highRiskTypes[opType] {
		return true
	}
	if targetCount > approvalTargetThreshold {
		return true
	}
	if (opType == BulkApproveDocuments || opType == BulkRejectDocuments) && targetCount > approveRejectThreshold {
		return true
	}
	return requested
}
