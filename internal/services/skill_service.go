package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/buildmate/internal/cache"
	"github.com/yoockh/buildmate/internal/models"
	pgrepo "github.com/yoockh/buildmate/internal/repositories/postgres"
	"github.com/yoockh/buildmate/internal/utils"
)

type SkillService interface {
	Save(ctx context.Context, skill *models.UserSkill) (int64, error)
	GetByID(ctx context.Context, userID string, skillID int64) (*models.UserSkill, error)
	Latest(ctx context.Context, userID string) (*models.UserSkill, error)
	Delete(ctx context.Context, userID string, skillID int64) error

	// SaveAndGenerate stores the skill, generates ideas for it and keeps the first one.
	SaveAndGenerate(ctx context.Context, skill *models.UserSkill) (*models.Idea, IdeaResult)
}

type skillService struct {
	skills pgrepo.SkillRepository
	ideas  IdeaService
	cache  cache.Cache
	log    *logrus.Logger
}

func NewSkillService(skills pgrepo.SkillRepository, ideas IdeaService, c cache.Cache, l *logrus.Logger) SkillService {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &skillService{skills: skills, ideas: ideas, cache: c, log: l}
}

func (s *skillService) Save(ctx context.Context, skill *models.UserSkill) (int64, error) {
	const op = "SkillService.Save"

	if skill == nil || skill.UserID == "" {
		return 0, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	normalizeSkill(skill)
	if skill.CreatedAt.IsZero() {
		skill.CreatedAt = time.Now().UTC()
	}

	if err := s.skills.Insert(ctx, skill); err != nil {
		return 0, utils.E(utils.CodeInternal, op, "failed to save skill", err)
	}
	return skill.SkillID, nil
}

func (s *skillService) GetByID(ctx context.Context, userID string, skillID int64) (*models.UserSkill, error) {
	const op = "SkillService.GetByID"

	if userID == "" || skillID <= 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and skill_id (>0) are required", nil)
	}
	out, err := s.skills.GetByID(ctx, userID, skillID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "skill not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get skill", err)
	}
	return out, nil
}

func (s *skillService) Latest(ctx context.Context, userID string) (*models.UserSkill, error) {
	const op = "SkillService.Latest"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	out, err := s.skills.Latest(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "no skill saved yet", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get latest skill", err)
	}
	return out, nil
}

func (s *skillService) Delete(ctx context.Context, userID string, skillID int64) error {
	const op = "SkillService.Delete"

	if userID == "" || skillID <= 0 {
		return utils.E(utils.CodeInvalidArgument, op, "user_id and skill_id (>0) are required", nil)
	}
	if err := s.skills.DeleteWithIdeas(ctx, userID, skillID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "skill not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to delete skill", err)
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, cache.IdeaListKey(userID)); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Warn("idea cache invalidation failed")
		}
	}
	return nil
}

func (s *skillService) SaveAndGenerate(ctx context.Context, skill *models.UserSkill) (*models.Idea, IdeaResult) {
	const op = "SkillService.SaveAndGenerate"

	if skill == nil {
		return nil, IdeaResult{Err: utils.E(utils.CodeInvalidArgument, op, "skill is required", nil)}
	}
	// Reject before writing so an unusable form never leaves a row behind.
	if err := ValidateSkill(op, skill.TechStack, skill.Goal); err != nil {
		return nil, IdeaResult{Err: err}
	}

	id, err := s.Save(ctx, skill)
	if err != nil {
		return nil, IdeaResult{Err: err}
	}
	skill.SkillID = id

	return s.ideas.GenerateAndSaveFirst(ctx, *skill)
}

func normalizeSkill(skill *models.UserSkill) {
	skill.TechStack = strings.TrimSpace(skill.TechStack)
	skill.Goal = strings.TrimSpace(skill.Goal)
	skill.ExperienceLevel = strings.TrimSpace(skill.ExperienceLevel)

	libs := make([]string, 0, len(skill.Libraries))
	for _, lib := range skill.Libraries {
		if lib = strings.TrimSpace(lib); lib != "" {
			libs = append(libs, lib)
		}
	}
	skill.Libraries = libs

	if skill.AdditionalNotes != nil && strings.TrimSpace(*skill.AdditionalNotes) == "" {
		skill.AdditionalNotes = nil
	}
}
