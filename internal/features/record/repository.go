package record

import (
	"context"
	"time"

	"go-fundadmin/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RecordRepository is the partitioned document store the automation engine
// and bulk handlers act on. Documents live in one collection per target type
// (tasks, documents, approval_requests, ...) and always carry tenant_id.
type RecordRepository interface {
	Create(ctx context.Context, tenantID primitive.ObjectID, targetType string, data map[string]interface{}) (string, error)
	Get(ctx context.Context, tenantID primitive.ObjectID, targetType, id string) (map[string]interface{}, error)
	Update(ctx context.Context, tenantID primitive.ObjectID, targetType, id string, fields map[string]interface{}) error
	SoftDelete(ctx context.Context, tenantID primitive.ObjectID, targetType, id string) error
	List(ctx context.Context, tenantID primitive.ObjectID, targetType string, filter map[string]interface{}, limit int64) ([]map[string]interface{}, error)
}

type RecordRepositoryImpl struct {
	db *mongo.Database
}

func NewRecordRepository(mongodb *database.MongodbDB) RecordRepository {
	return &RecordRepositoryImpl{db: mongodb.DB}
}

func (r *RecordRepositoryImpl) Create(ctx context.Context, tenantID primitive.ObjectID, targetType string, data map[string]interface{}) (string, error) {
	doc := bson.M{
		"tenant_id":  tenantID,
		"created_at": time.Now(),
		"updated_at": time.Now(),
	}
	for k, v := range data {
		doc[k] = v
	}

	res, err := r.db.Collection(targetType).InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return "", nil
}

func (r *RecordRepositoryImpl) Get(ctx context.Context, tenantID primitive.ObjectID, targetType, id string) (map[string]interface{}, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	err = r.db.Collection(targetType).
		FindOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}).
		Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

func (r *RecordRepositoryImpl) Update(ctx context.Context, tenantID primitive.ObjectID, targetType, id string, fields map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		set[k] = v
	}

	res, err := r.db.Collection(targetType).UpdateOne(ctx,
		bson.M{"_id": oid, "tenant_id": tenantID},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *RecordRepositoryImpl) SoftDelete(ctx context.Context, tenantID primitive.ObjectID, targetType, id string) error {
	now := time.Now()
	return r.Update(ctx, tenantID, targetType, id, map[string]interface{}{
		"deleted":    true,
		"deleted_at": now,
	})
}

func (r *RecordRepositoryImpl) List(ctx context.Context, tenantID primitive.ObjectID, targetType string, filter map[string]interface{}, limit int64) ([]map[string]interface{}, error) {
	query := bson.M{"tenant_id": tenantID, "deleted": bson.M{"$ne": true}}
	for k, v := range filter {
		query[k] = v
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.db.Collection(targetType).Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []map[string]interface{}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
