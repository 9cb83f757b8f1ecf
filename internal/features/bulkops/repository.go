package bulkops

import (
	"context"
	"time"

	"go-fundadmin/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BulkOperationRepository interface {
	Create(ctx context.Context, op *BulkOperation) error
	Get(ctx context.Context, tenantID primitive.ObjectID, id primitive.ObjectID) (*BulkOperation, error)
	List(ctx context.Context, tenantID primitive.ObjectID, companyID *primitive.ObjectID, status BulkStatus, limit int64) ([]BulkOperation, error)

	// TransitionStatus succeeds only when the stored status is one of the
	// expected values; returns false when another writer got there first.
	TransitionStatus(ctx context.Context, tenantID, id primitive.ObjectID, from []BulkStatus, to BulkStatus, set bson.M) (bool, error)

	// RecordTarget advances progress and result counters atomically.
	// Progress uses $max so it never moves backwards under concurrent
	// writers.
	RecordTarget(ctx context.Context, tenantID, id primitive.ObjectID, progress int, outcome TargetOutcome, targetErr *BulkError) error

	Finish(ctx context.Context, tenantID, id primitive.ObjectID, status BulkStatus, opErr string) error
	GetStatus(ctx context.Context, tenantID, id primitive.ObjectID) (BulkStatus, error)
}

type TargetOutcome string

const (
	OutcomeSuccess TargetOutcome = "successful"
	OutcomeFailed  TargetOutcome = "failed"
	OutcomeSkipped TargetOutcome = "skipped"
)

type BulkOperationRepositoryImpl struct {
	collection *mongo.Collection
}

func NewBulkOperationRepository(mongodb *database.MongodbDB) BulkOperationRepository {
	return &BulkOperationRepositoryImpl{
		collection: mongodb.DB.Collection("bulk_operations"),
	}
}

func (r *BulkOperationRepositoryImpl) Create(ctx context.Context, op *BulkOperation) error {
	if op.ID.IsZero() {
		op.ID = primitive.NewObjectID()
	}
	op.CreatedAt = time.Now()
	op.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, op)
	return err
}

func (r *BulkOperationRepositoryImpl) Get(ctx context.Context, tenantID, id primitive.ObjectID) (*BulkOperation, error) {
	var op BulkOperation
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}).Decode(&op)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &op, nil
}

func (r *BulkOperationRepositoryImpl) List(ctx context.Context, tenantID primitive.ObjectID, companyID *primitive.ObjectID, status BulkStatus, limit int64) ([]BulkOperation, error) {
	if limit <= 0 {
		limit = 50
	}

	filter := bson.M{"tenant_id": tenantID}
	if companyID != nil {
		filter["company_id"] = *companyID
	}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ops []BulkOperation
	if err = cursor.All(ctx, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *BulkOperationRepositoryImpl) TransitionStatus(ctx context.Context, tenantID, id primitive.ObjectID, from []BulkStatus, to BulkStatus, set bson.M) (bool, error) {
	update := bson.M{"status": to, "updated_at": time.Now()}
	for k, v := range set {
		update[k] = v
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "tenant_id": tenantID, "status": bson.M{"$in": from}},
		bson.M{"$set": update})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *BulkOperationRepositoryImpl) RecordTarget(ctx context.Context, tenantID, id primitive.ObjectID, progress int, outcome TargetOutcome, targetErr *BulkError) error {
	update := bson.M{
		"$max": bson.M{"progress": progress},
		"$inc": bson.M{"results." + string(outcome): 1},
		"$set": bson.M{"updated_at": time.Now()},
	}
	if targetErr != nil {
		update["$push"] = bson.M{"results.errors": *targetErr}
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}, update)
	return err
}

func (r *BulkOperationRepositoryImpl) Finish(ctx context.Context, tenantID, id primitive.ObjectID, status BulkStatus, opErr string) error {
	now := time.Now()
	set := bson.M{
		"status":       status,
		"updated_at":   now,
		"completed_at": &now,
	}
	if status == BulkStatusCompleted {
		set["progress"] = 100
	}
	if opErr != "" {
		set["error"] = opErr
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}, bson.M{"$set": set})
	return err
}

func (r *BulkOperationRepositoryImpl) GetStatus(ctx context.Context, tenantID, id primitive.ObjectID) (BulkStatus, error) {
	var doc struct {
		Status BulkStatus `bson:"status"`
	}
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID},
		options.FindOne().SetProjection(bson.M{"status": 1})).Decode(&doc)
	if err != nil {
		return "", err
	}
	return doc.Status, nil
}
