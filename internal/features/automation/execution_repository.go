package automation

import (
	"context"
	"time"

	"go-fundadmin/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EventRepository persists emitted events for audit. Events expire via TTL.
type EventRepository interface {
	Insert(ctx context.Context, event *AutomationEvent) error
	GetByID(ctx context.Context, tenantID, id primitive.ObjectID) (*AutomationEvent, error)
}

type EventRepositoryImpl struct {
	collection *mongo.Collection
}

func NewEventRepository(mongodb *database.MongodbDB) EventRepository {
	return &EventRepositoryImpl{collection: mongodb.DB.Collection("automation_events")}
}

func (r *EventRepositoryImpl) Insert(ctx context.Context, event *AutomationEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	event.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, event)
	return err
}

func (r *EventRepositoryImpl) GetByID(ctx context.Context, tenantID, id primitive.ObjectID) (*AutomationEvent, error) {
	var event AutomationEvent
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// ExecutionRepository persists AutomationExecution records (TTL-bounded).
type ExecutionRepository interface {
	Insert(ctx context.Context, exec *AutomationExecution) error
	Finalize(ctx context.Context, exec *AutomationExecution) error
	AppendResult(ctx context.Context, tenantID, executionID primitive.ObjectID, result ActionResult) error
	FindByRuleAndEvent(ctx context.Context, tenantID primitive.ObjectID, ruleID string, eventID primitive.ObjectID) (*AutomationExecution, error)
	FindByRuleAndCorrelation(ctx context.Context, tenantID primitive.ObjectID, ruleID, correlationID string) (*AutomationExecution, error)
	CountForRuleSince(ctx context.Context, tenantID primitive.ObjectID, ruleID string, since time.Time) (int64, error)
	ListByRule(ctx context.Context, tenantID primitive.ObjectID, ruleID string, limit int64) ([]AutomationExecution, error)
	ListByEvent(ctx context.Context, tenantID, eventID primitive.ObjectID) ([]AutomationExecution, error)
}

type ExecutionRepositoryImpl struct {
	collection *mongo.Collection
}

func NewExecutionRepository(mongodb *database.MongodbDB) ExecutionRepository {
	return &ExecutionRepositoryImpl{collection: mongodb.DB.Collection("automation_executions")}
}

func (r *ExecutionRepositoryImpl) Insert(ctx context.Context, exec *AutomationExecution) error {
	if exec.ID.IsZero() {
		exec.ID = primitive.NewObjectID()
	}
	exec.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, exec)
	return err
}

// Finalize writes the terminal state. Guarded on completed_at being unset so
// a finished execution is never rewritten.
func (r *ExecutionRepositoryImpl) Finalize(ctx context.Context, exec *AutomationExecution) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": exec.ID, "tenant_id": exec.TenantID, "completed_at": nil},
		bson.M{"$set": bson.M{
			"status":         exec.Status,
			"action_results": exec.ActionResults,
			"error":          exec.Error,
			"completed_at":   exec.CompletedAt,
		}})
	return err
}

// AppendResult adds a late action result (delayed-action revival) to an
// already finalized execution.
func (r *ExecutionRepositoryImpl) AppendResult(ctx context.Context, tenantID, executionID primitive.ObjectID, result ActionResult) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": executionID, "tenant_id": tenantID},
		bson.M{"$push": bson.M{"action_results": result}})
	return err
}

func (r *ExecutionRepositoryImpl) FindByRuleAndEvent(ctx context.Context, tenantID primitive.ObjectID, ruleID string, eventID primitive.ObjectID) (*AutomationExecution, error) {
	var exec AutomationExecution
	err := r.collection.FindOne(ctx, bson.M{
		"tenant_id": tenantID,
		"rule_id":   ruleID,
		"event_id":  eventID,
	}).Decode(&exec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &exec, nil
}

func (r *ExecutionRepositoryImpl) FindByRuleAndCorrelation(ctx context.Context, tenantID primitive.ObjectID, ruleID, correlationID string) (*AutomationExecution, error) {
	var exec AutomationExecution
	err := r.collection.FindOne(ctx, bson.M{
		"tenant_id":      tenantID,
		"rule_id":        ruleID,
		"correlation_id": correlationID,
	}).Decode(&exec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &exec, nil
}

func (r *ExecutionRepositoryImpl) CountForRuleSince(ctx context.Context, tenantID primitive.ObjectID, ruleID string, since time.Time) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"tenant_id":  tenantID,
		"rule_id":    ruleID,
		"started_at": bson.M{"$gte": since},
	})
}

func (r *ExecutionRepositoryImpl) ListByRule(ctx context.Context, tenantID primitive.ObjectID, ruleID string, limit int64) ([]AutomationExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "started_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"tenant_id": tenantID, "rule_id": ruleID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var execs []AutomationExecution
	if err = cursor.All(ctx, &execs); err != nil {
		return nil, err
	}
	return execs, nil
}

func (r *ExecutionRepositoryImpl) ListByEvent(ctx context.Context, tenantID, eventID primitive.ObjectID) ([]AutomationExecution, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"tenant_id": tenantID, "event_id": eventID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var execs []AutomationExecution
	if err = cursor.All(ctx, &execs); err != nil {
		return nil, err
	}
	return execs, nil
}

// ScheduledActionRepository stores durable timer records for delayed actions.
type ScheduledActionRepository interface {
	Insert(ctx context.Context, sa *ScheduledAction) error
	DueBefore(ctx context.Context, now time.Time, limit int64) ([]ScheduledAction, error)
	MarkDone(ctx context.Context, id string, execErr error) error
}

type ScheduledActionRepositoryImpl struct {
	collection *mongo.Collection
}

func NewScheduledActionRepository(mongodb *database.MongodbDB) ScheduledActionRepository {
	return &ScheduledActionRepositoryImpl{collection: mongodb.DB.Collection("scheduled_actions")}
}

func (r *ScheduledActionRepositoryImpl) Insert(ctx context.Context, sa *ScheduledAction) error {
	sa.Status = ScheduledPending
	sa.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, sa)
	return err
}

func (r *ScheduledActionRepositoryImpl) DueBefore(ctx context.Context, now time.Time, limit int64) ([]ScheduledAction, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "run_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{
		"status": ScheduledPending,
		"run_at": bson.M{"$lte": now},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var due []ScheduledAction
	if err = cursor.All(ctx, &due); err != nil {
		return nil, err
	}
	return due, nil
}

func (r *ScheduledActionRepositoryImpl) MarkDone(ctx context.Context, id string, execErr error) error {
	set := bson.M{"status": ScheduledDone}
	if execErr != nil {
		set = bson.M{"status": ScheduledFailed, "error": execErr.Error()}
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}
