package recurring

import (
	"context"
	"time"

	"go-fundadmin/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RecurringJobRepository interface {
	Create(ctx context.Context, job *RecurringJob) error
	Get(ctx context.Context, tenantID, id primitive.ObjectID) (*RecurringJob, error)
	List(ctx context.Context, tenantID primitive.ObjectID, limit int64) ([]RecurringJob, error)
	Update(ctx context.Context, job *RecurringJob) error
	Delete(ctx context.Context, tenantID, id primitive.ObjectID) error

	// DueBefore returns enabled jobs whose next run is at or before now.
	DueBefore(ctx context.Context, now time.Time, limit int64) ([]RecurringJob, error)

	// AdvanceRunState stamps the outcome of a run and the next wake-up.
	AdvanceRunState(ctx context.Context, tenantID, id primitive.ObjectID, ranAt time.Time, status RunStatus, runErr string, nextRunAt time.Time) error
}

type RecurringJobRepositoryImpl struct {
	collection *mongo.Collection
}

func NewRecurringJobRepository(mongodb *database.MongodbDB) RecurringJobRepository {
	return &RecurringJobRepositoryImpl{
		collection: mongodb.DB.Collection("recurring_jobs"),
	}
}

func (r *RecurringJobRepositoryImpl) Create(ctx context.Context, job *RecurringJob) error {
	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}
	job.CreatedAt = time.Now()
	job.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, job)
	return err
}

func (r *RecurringJobRepositoryImpl) Get(ctx context.Context, tenantID, id primitive.ObjectID) (*RecurringJob, error) {
	var job RecurringJob
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}).Decode(&job)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *RecurringJobRepositoryImpl) List(ctx context.Context, tenantID primitive.ObjectID, limit int64) ([]RecurringJob, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []RecurringJob
	if err = cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *RecurringJobRepositoryImpl) Update(ctx context.Context, job *RecurringJob) error {
	job.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": job.ID, "tenant_id": job.TenantID}, job)
	return err
}

func (r *RecurringJobRepositoryImpl) Delete(ctx context.Context, tenantID, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "tenant_id": tenantID})
	return err
}

func (r *RecurringJobRepositoryImpl) DueBefore(ctx context.Context, now time.Time, limit int64) ([]RecurringJob, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "next_run_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{
		"enabled":     true,
		"next_run_at": bson.M{"$lte": now},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []RecurringJob
	if err = cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *RecurringJobRepositoryImpl) AdvanceRunState(ctx context.Context, tenantID, id primitive.ObjectID, ranAt time.Time, status RunStatus, runErr string, nextRunAt time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "tenant_id": tenantID},
		bson.M{"$set": bson.M{
			"last_run_at":     ranAt,
			"last_run_status": status,
			"last_run_error":  runErr,
			"next_run_at":     nextRunAt,
			"updated_at":      time.Now(),
		}})
	return err
}
