package config

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureMongoIndexes creates the generation_logs indexes, including the TTL index on expires_at.
func EnsureMongoIndexes(ctx context.Context) error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}

	db := MongoDatabase()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	logs := db.Collection("generation_logs")
	_, err := logs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// TTL index: expire at ExpiresAt (must be Date)
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_expires_at").
				SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "attempt_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_attempt_id").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("by_user_ts"),
		},
	})
	return err
}
