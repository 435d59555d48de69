package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/buildmate/internal/models"
	"github.com/yoockh/buildmate/internal/utils"
	"gorm.io/gorm"
)

type SkillRepository interface {
	Insert(ctx context.Context, s *models.UserSkill) error
	GetByID(ctx context.Context, userID string, skillID int64) (*models.UserSkill, error)
	Latest(ctx context.Context, userID string) (*models.UserSkill, error)
	// DeleteWithIdeas removes the skill and every idea generated from it.
	DeleteWithIdeas(ctx context.Context, userID string, skillID int64) error
}

type skillRepo struct {
	db *gorm.DB
}

func NewSkillRepo(db *gorm.DB) SkillRepository {
	return &skillRepo{db: db}
}

func (r *skillRepo) Insert(ctx context.Context, s *models.UserSkill) error {
	return r.db.WithContext(ctx).Omit("Ideas").Create(s).Error
}

func (r *skillRepo) GetByID(ctx context.Context, userID string, skillID int64) (*models.UserSkill, error) {
	var s models.UserSkill
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND skill_id = ?", userID, skillID).
		Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *skillRepo) Latest(ctx context.Context, userID string) (*models.UserSkill, error) {
	var s models.UserSkill
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("skill_id DESC").
		Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *skillRepo) DeleteWithIdeas(ctx context.Context, userID string, skillID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND skill_id = ?", userID, skillID).Delete(&models.Idea{}).Error; err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND skill_id = ?", userID, skillID).Delete(&models.UserSkill{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrNotFound
		}
		return nil
	})
}
