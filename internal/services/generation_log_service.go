package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/buildmate/internal/models"
	mongorepo "github.com/yoockh/buildmate/internal/repositories/mongo"
	"github.com/yoockh/buildmate/internal/utils"
)

type GenerationLogService interface {
	Record(ctx context.Context, l *models.GenerationLog) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.GenerationLog, error)
}

type generationLogService struct {
	logs mongorepo.GenerationLogRepository
	ttl  time.Duration
}

func NewGenerationLogService(logs mongorepo.GenerationLogRepository, ttl time.Duration) GenerationLogService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &generationLogService{logs: logs, ttl: ttl}
}

func (s *generationLogService) Record(ctx context.Context, l *models.GenerationLog) error {
	const op = "GenerationLogService.Record"

	if l == nil || l.UserID == "" || l.Status == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id and status are required", nil)
	}

	now := time.Now().UTC()
	if l.AttemptID == "" {
		l.AttemptID = uuid.NewString()
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = now
	}
	l.ExpiresAt = l.Timestamp.Add(s.ttl)

	if err := s.logs.Insert(ctx, l); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to insert generation log", err)
	}
	return nil
}

func (s *generationLogService) ListByUser(ctx context.Context, userID string, limit int64) ([]models.GenerationLog, error) {
	const op = "GenerationLogService.ListByUser"

	if limit > 500 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "limit must be <= 500", nil)
	}
	out, err := s.logs.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list generation logs", err)
	}
	if out == nil {
		out = []models.GenerationLog{}
	}
	return out, nil
}
