package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-fundadmin/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

type MongodbDB struct {
	DB *mongo.Database
}

// NewDatabase creates a new MongoDB database connection with lifecycle management
func NewDatabase(lc fx.Lifecycle, cfg *config.Config) (*MongodbDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	log.Println("Connected to MongoDB!")

	db := client.Database(cfg.DBName)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Println("Disconnecting from MongoDB...")
			return client.Disconnect(ctx)
		},
	})

	return &MongodbDB{DB: db}, nil
}

// EnsureTTLIndex creates (or refreshes) a TTL index on field so documents
// expire after the given number of days. Retention for events, executions and
// bulk-operation history is enforced entirely by Mongo.
func (m *MongodbDB) EnsureTTLIndex(ctx context.Context, collection, field string, days int) error {
	if days <= 0 {
		return nil
	}
	seconds := int32(days * 24 * 60 * 60)
	indexName := fmt.Sprintf("%s_ttl", field)

	_, err := m.DB.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: field, Value: 1}},
		Options: options.Index().
			SetName(indexName).
			SetExpireAfterSeconds(seconds),
	})
	if err != nil {
		// A TTL value change requires dropping the old index first.
		if _, dropErr := m.DB.Collection(collection).Indexes().DropOne(ctx, indexName); dropErr != nil {
			return err
		}
		_, err = m.DB.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: field, Value: 1}},
			Options: options.Index().
				SetName(indexName).
				SetExpireAfterSeconds(seconds),
		})
	}
	return err
}

// EnsureScopeIndexes creates the tenant partition index and the secondary
// company-scoped listing index on a collection.
func (m *MongodbDB) EnsureScopeIndexes(ctx context.Context, collection string) error {
	_, err := m.DB.Collection(collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}
