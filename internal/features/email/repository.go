package email

import (
	"context"
	"time"

	"go-fundadmin/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type EmailLogRepository struct {
	col *mongo.Collection
}

func NewEmailLogRepository(db *database.MongodbDB) *EmailLogRepository {
	return &EmailLogRepository{
		col: db.DB.Collection("email_log"),
	}
}

func (r *EmailLogRepository) Create(ctx context.Context, entry *EmailLog) error {
	entry.CreatedAt = time.Now()
	_, err := r.col.InsertOne(ctx, entry)
	return err
}

func (r *EmailLogRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status EmailStatus, errMsg string) error {
	set := bson.M{"status": status, "error": errMsg}
	if status == EmailSent {
		now := time.Now()
		set["sent_at"] = now
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}
