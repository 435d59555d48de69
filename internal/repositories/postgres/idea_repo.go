package postgres

import (
	"context"

	"github.com/yoockh/buildmate/internal/models"
	"github.com/yoockh/buildmate/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IdeaRepository interface {
	// Insert stores the idea and fills IdeaID. A row with the same idea_id is replaced only when it
	// belongs to the same user; otherwise ErrNotFound is returned and nothing changes.
	Insert(ctx context.Context, idea *models.Idea) error
	ListByUser(ctx context.Context, userID string) ([]models.Idea, error)
	ListByUserAndIdeaID(ctx context.Context, userID string, ideaID int64) ([]models.Idea, error)
	DeleteBySkill(ctx context.Context, skillID int64) error
}

type ideaRepo struct {
	db *gorm.DB
}

func NewIdeaRepo(db *gorm.DB) IdeaRepository {
	return &ideaRepo{db: db}
}

func (r *ideaRepo) Insert(ctx context.Context, idea *models.Idea) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idea_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"skill_id", "idea_title", "description", "difficulty", "tech_used", "learning_focus", "created_at"}),
			Where:     clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "ideas.user_id = excluded.user_id"}}},
		}).
		Create(idea)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *ideaRepo) ListByUser(ctx context.Context, userID string) ([]models.Idea, error) {
	var rows []models.Idea
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("idea_id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *ideaRepo) ListByUserAndIdeaID(ctx context.Context, userID string, ideaID int64) ([]models.Idea, error) {
	var rows []models.Idea
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idea_id = ?", userID, ideaID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *ideaRepo) DeleteBySkill(ctx context.Context, skillID int64) error {
	return r.db.WithContext(ctx).
		Where("skill_id = ?", skillID).
		Delete(&models.Idea{}).Error
}
