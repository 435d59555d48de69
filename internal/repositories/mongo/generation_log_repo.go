package mongo

import (
	"context"
	"time"

	"github.com/yoockh/buildmate/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const GenerationLogCollection = "generation_logs"

type GenerationLogRepository interface {
	Insert(ctx context.Context, l *models.GenerationLog) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.GenerationLog, error)
}

type generationLogRepo struct {
	col *mongo.Collection
}

func NewGenerationLogRepo(db *mongo.Database) GenerationLogRepository {
	return &generationLogRepo{col: db.Collection(GenerationLogCollection)}
}

func (r *generationLogRepo) Insert(ctx context.Context, l *models.GenerationLog) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, l)
	return err
}

func (r *generationLogRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.GenerationLog, error) {
	if limit <= 0 {
		limit = 50
	}

	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}

	cur, err := r.col.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GenerationLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
