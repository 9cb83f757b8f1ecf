package automation

import "go-fundadmin/pkg/condition"

// DefaultCatalog returns the built-in rules every tenant starts with. The
// catalog is constructed fresh per call and handed to the rule repository at
// startup; tenant-stored rules sharing an id override the built-in entirely.
func DefaultCatalog() []AutomationRule {
	return []AutomationRule{
		{
			ID:          "builtin-document-upload-triage",
			Name:        "Document upload triage",
			Description: "Create a review task and notify the team when an invoice or receipt arrives",
			Enabled:     true,
			BuiltIn:     true,
			Trigger: RuleTrigger{
				Event: EventDocumentUploaded,
				Conditions: []condition.Condition{
					{Field: "docType", Operator: condition.OperatorIn, Value: []interface{}{"INVOICE", "RECEIPT"}},
				},
			},
			Actions: []AutomationAction{
				{
					ID:    "triage-create-task",
					Type:  ActionCreateTask,
					Order: 1,
					Config: map[string]interface{}{
						"title":       "Review uploaded {docType}",
						"description": "Document {fileName} needs review and booking",
						"priority":    "normal",
					},
					ContinueOnError: true,
				},
				{
					ID:    "triage-notify",
					Type:  ActionSendNotification,
					Order: 2,
					Config: map[string]interface{}{
						"title":    "New {docType} uploaded",
						"message":  "{fileName} is waiting for review",
						"priority": "normal",
					},
					ContinueOnError: true,
				},
			},
		},
		{
			ID:          "builtin-approval-reminder",
			Name:        "Approval request reminder",
			Description: "Notify the approver immediately and remind them after a day",
			Enabled:     true,
			BuiltIn:     true,
			Trigger: RuleTrigger{
				Event: EventApprovalRequested,
			},
			Actions: []AutomationAction{
				{
					ID:    "approval-notify",
					Type:  ActionSendNotification,
					Order: 1,
					Config: map[string]interface{}{
						"title":    "Approval requested: {subject}",
						"message":  "{requestedBy} is waiting for your approval",
						"priority": "high",
					},
					ContinueOnError: true,
				},
				{
					ID:    "approval-remind",
					Type:  ActionSendNotification,
					Order: 2,
					Config: map[string]interface{}{
						"title":    "Reminder: approval still pending for {subject}",
						"message":  "This request has been open for a day",
						"priority": "high",
					},
					DelayMinutes:    24 * 60,
					ContinueOnError: true,
				},
			},
		},
		{
			ID:          "builtin-sync-failure-escalation",
			Name:        "Ledger sync failure escalation",
			Description: "Raise sync failures in chat-ops, at most once per hour",
			Enabled:     true,
			BuiltIn:     true,
			Trigger: RuleTrigger{
				Event: EventSyncFailed,
			},
			Actions: []AutomationAction{
				{
					ID:    "sync-failure-chatops",
					Type:  ActionSendSlack,
					Order: 1,
					Config: map[string]interface{}{
						"title":    "Ledger sync failed",
						"message":  "Sync {syncId} failed: {error}",
						"priority": "urgent",
					},
					ContinueOnError: true,
				},
				{
					ID:    "sync-failure-escalate",
					Type:  ActionEscalate,
					Order: 2,
					Config: map[string]interface{}{
						"title":   "Repeated ledger sync failure",
						"message": "Sync {syncId} needs manual intervention",
					},
					Condition: &condition.Condition{
						Field:    "consecutiveFailures",
						Operator: condition.OperatorGreaterEq,
						Value:    3,
					},
					ContinueOnError: true,
				},
			},
			Settings: RuleSettings{CooldownMinutes: 60},
		},
		{
			ID:          "builtin-deadline-warning",
			Name:        "Deadline warning",
			Description: "Warn owners when a filing deadline approaches",
			Enabled:     true,
			BuiltIn:     true,
			Trigger: RuleTrigger{
				Event: EventDeadlineApproaching,
			},
			Actions: []AutomationAction{
				{
					ID:    "deadline-notify",
					Type:  ActionSendNotification,
					Order: 1,
					Config: map[string]interface{}{
						"title":    "Deadline approaching: {deadline.name}",
						"message":  "Due {deadline.dueDate} for {companyName}",
						"priority": "high",
					},
					ContinueOnError: true,
				},
				{
					ID:    "deadline-email",
					Type:  ActionSendEmail,
					Order: 2,
					Config: map[string]interface{}{
						"to":      "{deadline.ownerEmail}",
						"subject": "Deadline approaching: {deadline.name}",
						"body":    "The deadline {deadline.name} for {companyName} is due on {deadline.dueDate}.",
					},
					Condition: &condition.Condition{
						Field:    "deadline.ownerEmail",
						Operator: condition.OperatorRegex,
						Value:    "@",
					},
					ContinueOnError: true,
				},
			},
			Settings: RuleSettings{CooldownMinutes: 12 * 60},
		},
	}
}
