package automation

import (
	"context"
	"fmt"
	"time"

	common_models "go-fundadmin/internal/common/models"
	"go-fundadmin/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type AutomationService interface {
	CreateRule(ctx context.Context, rule *AutomationRule) error
	GetRule(ctx context.Context, tenantID primitive.ObjectID, id string) (*AutomationRule, error)
	ListRules(ctx context.Context, tenantID primitive.ObjectID) ([]AutomationRule, error)
	UpdateRule(ctx context.Context, rule *AutomationRule) error
	DeleteRule(ctx context.Context, tenantID primitive.ObjectID, id string) error
	EnableRule(ctx context.Context, tenantID primitive.ObjectID, id string, enabled bool) error

	ListExecutions(ctx context.Context, tenantID primitive.ObjectID, ruleID string, limit int64) ([]AutomationExecution, error)

	// Emit is the sole entry point producers use to drive the engine.
	Emit(ctx context.Context, event *AutomationEvent) ([]AutomationExecution, error)
}

type AutomationServiceImpl struct {
	Rules        RuleRepository
	Events       EventRepository
	Executions   ExecutionRepository
	Matcher      *RuleMatcher
	Executor     ActionExecutor
	AuditService audit.AuditService
	Logger       *zap.Logger

	now func() time.Time
}

func NewAutomationService(
	rules RuleRepository,
	events EventRepository,
	executions ExecutionRepository,
	matcher *RuleMatcher,
	executor ActionExecutor,
	auditService audit.AuditService,
	logger *zap.Logger,
) AutomationService {
	return &AutomationServiceImpl{
		Rules:        rules,
		Events:       events,
		Executions:   executions,
		Matcher:      matcher,
		Executor:     executor,
		AuditService: auditService,
		Logger:       logger,
		now:          time.Now,
	}
}

func (s *AutomationServiceImpl) CreateRule(ctx context.Context, rule *AutomationRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	err := s.Rules.Create(ctx, rule)
	if err == nil {
		s.AuditService.LogChange(ctx, common_models.AuditActionAutomation, "automation_rules", rule.ID, map[string]common_models.Change{
			"rule": {New: rule},
		})
	}
	return err
}

func (s *AutomationServiceImpl) GetRule(ctx context.Context, tenantID primitive.ObjectID, id string) (*AutomationRule, error) {
	return s.Rules.GetByID(ctx, tenantID, id)
}

func (s *AutomationServiceImpl) ListRules(ctx context.Context, tenantID primitive.ObjectID) ([]AutomationRule, error) {
	return s.Rules.ListForTenant(ctx, tenantID)
}

func (s *AutomationServiceImpl) UpdateRule(ctx context.Context, rule *AutomationRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	oldRule, _ := s.Rules.GetByID(ctx, rule.TenantID, rule.ID)

	err := s.Rules.Update(ctx, rule)
	if err == nil {
		s.AuditService.LogChange(ctx, common_models.AuditActionAutomation, "automation_rules", rule.ID, map[string]common_models.Change{
			"rule": {Old: oldRule, New: rule},
		})
	}
	return err
}

func (s *AutomationServiceImpl) DeleteRule(ctx context.Context, tenantID primitive.ObjectID, id string) error {
	oldRule, _ := s.Rules.GetByID(ctx, tenantID, id)

	err := s.Rules.Delete(ctx, tenantID, id)
	if err == nil {
		s.AuditService.LogChange(ctx, common_models.AuditActionAutomation, "automation_rules", id, map[string]common_models.Change{
			"rule": {Old: oldRule, New: "DELETED"},
		})
	}
	return err
}

func (s *AutomationServiceImpl) EnableRule(ctx context.Context, tenantID primitive.ObjectID, id string, enabled bool) error {
	return s.Rules.Enable(ctx, tenantID, id, enabled)
}

func (s *AutomationServiceImpl) ListExecutions(ctx context.Context, tenantID primitive.ObjectID, ruleID string, limit int64) ([]AutomationExecution, error) {
	return s.Executions.ListByRule(ctx, tenantID, ruleID, limit)
}

// Emit assigns identity to the event, persists it, runs every matching rule
// and returns the resulting executions. Rules run sequentially; a rule-level
// failure is logged and does not stop the remaining rules.
func (s *AutomationServiceImpl) Emit(ctx context.Context, event *AutomationEvent) ([]AutomationExecution, error) {
	if event.TenantID.IsZero() {
		return nil, fmt.Errorf("event tenant_id is required")
	}
	if event.Type == "" {
		return nil, fmt.Errorf("event type is required")
	}

	event.ID = primitive.NewObjectID()
	event.Timestamp = s.now()

	if err := s.Events.Insert(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to persist event: %w", err)
	}

	matched, err := s.Matcher.Match(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("rule matching failed: %w", err)
	}

	var executions []AutomationExecution
	for _, rule := range matched {
		if suppressed, reason := s.suppressed(ctx, rule, event); suppressed {
			s.Logger.Debug("rule suppressed",
				zap.String("rule_id", rule.ID),
				zap.String("event_id", event.ID.Hex()),
				zap.String("reason", reason))
			continue
		}

		exec, err := s.Executor.Execute(ctx, rule, event)
		if err != nil {
			s.Logger.Error("rule execution failed",
				zap.String("rule_id", rule.ID),
				zap.String("event_id", event.ID.Hex()),
				zap.Error(err))
			continue
		}
		executions = append(executions, *exec)
	}
	return executions, nil
}

// suppressed applies cooldown, the hourly cap and run-once before any
// execution record is constructed.
func (s *AutomationServiceImpl) suppressed(ctx context.Context, rule AutomationRule, event *AutomationEvent) (bool, string) {
	now := s.now()

	if rule.Settings.CooldownMinutes > 0 && rule.LastExecutedAt != nil {
		cooldown := time.Duration(rule.Settings.CooldownMinutes) * time.Minute
		if now.Sub(*rule.LastExecutedAt) < cooldown {
			return true, "cooldown"
		}
	}

	if rule.Settings.MaxExecutionsPerHour > 0 {
		count, err := s.Executions.CountForRuleSince(ctx, event.TenantID, rule.ID, now.Add(-time.Hour))
		if err != nil {
			s.Logger.Warn("hourly cap check failed", zap.String("rule_id", rule.ID), zap.Error(err))
		} else if count >= int64(rule.Settings.MaxExecutionsPerHour) {
			return true, "hourly cap"
		}
	}

	if rule.Settings.RunOnce {
		// The engine assigns a fresh event id per emit, so run-once dedup
		// keys on the producer-supplied correlation id when there is one.
		var existing *AutomationExecution
		var err error
		if event.CorrelationID != "" {
			existing, err = s.Executions.FindByRuleAndCorrelation(ctx, event.TenantID, rule.ID, event.CorrelationID)
		} else {
			existing, err = s.Executions.FindByRuleAndEvent(ctx, event.TenantID, rule.ID, event.ID)
		}
		if err != nil {
			s.Logger.Warn("run-once check failed", zap.String("rule_id", rule.ID), zap.Error(err))
		} else if existing != nil {
			return true, "run once"
		}
	}

	return false, ""
}

func validateRule(rule *AutomationRule) error {
	if rule.TenantID.IsZero() {
		return fmt.Errorf("rule tenant_id is required")
	}
	if rule.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if rule.Trigger.Event == "" {
		return fmt.Errorf("rule trigger event is required")
	}
	seen := make(map[int]bool, len(rule.Actions))
	for i := range rule.Actions {
		action := &rule.Actions[i]
		if action.Type == "" {
			return fmt.Errorf("action %d: type is required", i)
		}
		if seen[action.Order] {
			return fmt.Errorf("action order %d is not unique", action.Order)
		}
		seen[action.Order] = true
		if action.ID == "" {
			action.ID = primitive.NewObjectID().Hex()
		}
	}
	return nil
}
