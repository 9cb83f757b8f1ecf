package automation

import (
	"context"

	"go-fundadmin/pkg/condition"
)

// RuleMatcher selects the rules applicable to an incoming event.
type RuleMatcher struct {
	Rules RuleRepository
}

func NewRuleMatcher(rules RuleRepository) *RuleMatcher {
	return &RuleMatcher{Rules: rules}
}

// Match loads the tenant's rules (built-ins merged under overrides) and
// returns those that are enabled, trigger on the event's type, are in scope
// for the event's company, and whose trigger conditions all hold. An empty
// condition list matches unconditionally.
func (m *RuleMatcher) Match(ctx context.Context, event *AutomationEvent) ([]AutomationRule, error) {
	rules, err := m.Rules.ListForTenant(ctx, event.TenantID)
	if err != nil {
		return nil, err
	}

	var matched []AutomationRule
	for _, rule := range rules {
		if !rule.Enabled || rule.Trigger.Event != event.Type {
			continue
		}
		if !companyInScope(rule, event) {
			continue
		}
		if !condition.All(rule.Trigger.Conditions, event.Data) {
			continue
		}
		matched = append(matched, rule)
	}
	return matched, nil
}

// companyInScope: a rule pinned to a company only matches events from that
// company; an unscoped rule matches any event in the tenant.
func companyInScope(rule AutomationRule, event *AutomationEvent) bool {
	if rule.CompanyID == nil {
		return true
	}
	return event.CompanyID != nil && *event.CompanyID == *rule.CompanyID
}
