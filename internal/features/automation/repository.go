package automation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go-fundadmin/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RuleRepository is the rule store: an immutable built-in catalog layered
// under tenant-stored rules. A stored rule sharing a built-in's id replaces
// it entirely on read.
type RuleRepository interface {
	ListForTenant(ctx context.Context, tenantID primitive.ObjectID) ([]AutomationRule, error)
	GetByID(ctx context.Context, tenantID primitive.ObjectID, ruleID string) (*AutomationRule, error)
	Create(ctx context.Context, rule *AutomationRule) error
	Update(ctx context.Context, rule *AutomationRule) error
	Delete(ctx context.Context, tenantID primitive.ObjectID, ruleID string) error
	Enable(ctx context.Context, tenantID primitive.ObjectID, ruleID string, enabled bool) error

	// RecordExecution advances the rule's bookkeeping atomically. Works for
	// built-ins too, which have no stored rule document.
	RecordExecution(ctx context.Context, tenantID primitive.ObjectID, ruleID string, at time.Time) error
}

type ruleStats struct {
	TenantID       primitive.ObjectID `bson:"tenant_id"`
	RuleID         string             `bson:"rule_id"`
	LastExecutedAt *time.Time         `bson:"last_executed_at,omitempty"`
	ExecutionCount int64              `bson:"execution_count"`
}

type RuleRepositoryImpl struct {
	rules    *mongo.Collection
	stats    *mongo.Collection
	defaults []AutomationRule
}

func NewRuleRepository(mongodb *database.MongodbDB) RuleRepository {
	return &RuleRepositoryImpl{
		rules:    mongodb.DB.Collection("automation_rules"),
		stats:    mongodb.DB.Collection("automation_rule_stats"),
		defaults: DefaultCatalog(),
	}
}

func (r *RuleRepositoryImpl) ListForTenant(ctx context.Context, tenantID primitive.ObjectID) ([]AutomationRule, error) {
	cursor, err := r.rules.Find(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stored []AutomationRule
	if err = cursor.All(ctx, &stored); err != nil {
		return nil, err
	}

	// Defaults first, overrides on top keyed by rule id.
	merged := make(map[string]AutomationRule, len(r.defaults)+len(stored))
	for _, rule := range r.defaults {
		rule.TenantID = tenantID
		merged[rule.ID] = rule
	}
	for _, rule := range stored {
		merged[rule.ID] = rule
	}

	rules := make([]AutomationRule, 0, len(merged))
	for _, rule := range merged {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	if err := r.attachStats(ctx, tenantID, rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RuleRepositoryImpl) GetByID(ctx context.Context, tenantID primitive.ObjectID, ruleID string) (*AutomationRule, error) {
	var rule AutomationRule
	err := r.rules.FindOne(ctx, bson.M{"tenant_id": tenantID, "rule_id": ruleID}).Decode(&rule)
	if err == mongo.ErrNoDocuments {
		for _, builtin := range r.defaults {
			if builtin.ID == ruleID {
				builtin.TenantID = tenantID
				rule = builtin
				err = nil
				break
			}
		}
	}
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}

	rules := []AutomationRule{rule}
	if err := r.attachStats(ctx, tenantID, rules); err != nil {
		return nil, err
	}
	return &rules[0], nil
}

func (r *RuleRepositoryImpl) Create(ctx context.Context, rule *AutomationRule) error {
	if rule.ID == "" {
		rule.ID = primitive.NewObjectID().Hex()
	}
	rule.BuiltIn = false
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()
	_, err := r.rules.InsertOne(ctx, rule)
	return err
}

func (r *RuleRepositoryImpl) Update(ctx context.Context, rule *AutomationRule) error {
	rule.UpdatedAt = time.Now()
	// Overriding a built-in stores a tenant copy under the same rule id.
	opts := options.Replace().SetUpsert(true)
	_, err := r.rules.ReplaceOne(ctx,
		bson.M{"tenant_id": rule.TenantID, "rule_id": rule.ID},
		rule, opts)
	return err
}

func (r *RuleRepositoryImpl) Delete(ctx context.Context, tenantID primitive.ObjectID, ruleID string) error {
	res, err := r.rules.DeleteOne(ctx, bson.M{"tenant_id": tenantID, "rule_id": ruleID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("rule %s not found", ruleID)
	}
	return nil
}

func (r *RuleRepositoryImpl) Enable(ctx context.Context, tenantID primitive.ObjectID, ruleID string, enabled bool) error {
	res, err := r.rules.UpdateOne(ctx,
		bson.M{"tenant_id": tenantID, "rule_id": ruleID},
		bson.M{"$set": bson.M{"enabled": enabled, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Toggling a built-in materializes a tenant override first.
		builtin, err := r.GetByID(ctx, tenantID, ruleID)
		if err != nil {
			return err
		}
		if builtin == nil {
			return fmt.Errorf("rule %s not found", ruleID)
		}
		builtin.Enabled = enabled
		return r.Update(ctx, builtin)
	}
	return nil
}

func (r *RuleRepositoryImpl) RecordExecution(ctx context.Context, tenantID primitive.ObjectID, ruleID string, at time.Time) error {
	opts := options.Update().SetUpsert(true)
	_, err := r.stats.UpdateOne(ctx,
		bson.M{"tenant_id": tenantID, "rule_id": ruleID},
		bson.M{
			"$inc": bson.M{"execution_count": 1},
			"$max": bson.M{"last_executed_at": at},
		}, opts)
	return err
}

// attachStats merges bookkeeping counters into the given rules in place.
func (r *RuleRepositoryImpl) attachStats(ctx context.Context, tenantID primitive.ObjectID, rules []AutomationRule) error {
	ids := make([]string, 0, len(rules))
	for _, rule := range rules {
		ids = append(ids, rule.ID)
	}

	cursor, err := r.stats.Find(ctx, bson.M{"tenant_id": tenantID, "rule_id": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var stats []ruleStats
	if err = cursor.All(ctx, &stats); err != nil {
		return err
	}

	byID := make(map[string]ruleStats, len(stats))
	for _, s := range stats {
		byID[s.RuleID] = s
	}
	for i := range rules {
		if s, ok := byID[rules[i].ID]; ok {
			rules[i].LastExecutedAt = s.LastExecutedAt
			rules[i].ExecutionCount = s.ExecutionCount
		}
	}
	return nil
}
