package config

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var MongoClient *mongo.Client

var mongoDBName = "buildmate"

// InitMongo connects the generation-log store.
func InitMongo(ctx context.Context, cfg StoreConfig) error {
	if cfg.MongoURI == "" {
		return errors.New("MONGO_URI environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, mongoClientOptions(cfg))
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("ping mongo: %w", err)
	}

	MongoClient = client
	if cfg.MongoDB != "" {
		mongoDBName = cfg.MongoDB
	}
	return nil
}

func mongoClientOptions(cfg StoreConfig) *options.ClientOptions {
	opts := options.Client().ApplyURI(cfg.MongoURI).
		SetAppName("buildmate").
		SetServerSelectionTimeout(20 * time.Second).
		SetConnectTimeout(15 * time.Second).
		SetMaxPoolSize(10).
		SetMinPoolSize(1)

	// Atlas handshakes can fail on newer Go TLS defaults; pinning 1.2 works around it.
	if cfg.MongoPinTLS12 {
		opts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: cfg.MongoInsecureTLS,
			MinVersion:         tls.VersionTLS12,
			MaxVersion:         tls.VersionTLS12,
		})
	}
	return opts
}

// MongoDatabase returns the database holding generation logs.
func MongoDatabase() *mongo.Database {
	return MongoClient.Database(mongoDBName)
}
