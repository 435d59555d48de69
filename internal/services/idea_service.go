package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/buildmate/internal/cache"
	"github.com/yoockh/buildmate/internal/ideagen"
	"github.com/yoockh/buildmate/internal/models"
	"github.com/yoockh/buildmate/internal/providers/llm"
	pgrepo "github.com/yoockh/buildmate/internal/repositories/postgres"
	"github.com/yoockh/buildmate/internal/utils"
)

// IdeaResult is the outcome of one generation: Ideas on success, Err otherwise.
type IdeaResult struct {
	Ideas []models.Idea
	Err   error
}

func (r IdeaResult) OK() bool { return r.Err == nil }

type IdeaService interface {
	// Generate builds the prompt, calls the model once and parses the reply. Nothing is persisted.
	Generate(ctx context.Context, skill models.UserSkill) IdeaResult
	// GenerateAndSaveFirst generates and persists only the first idea of the result.
	GenerateAndSaveFirst(ctx context.Context, skill models.UserSkill) (*models.Idea, IdeaResult)

	// Save stores an idea on one of the caller's skills. A non-zero IdeaID replaces that idea and
	// must belong to the caller.
	Save(ctx context.Context, idea *models.Idea) (int64, error)
	ListByUser(ctx context.Context, userID string) []models.Idea
	GetByID(ctx context.Context, userID string, ideaID int64) []models.Idea
}

type ideaService struct {
	ideas    pgrepo.IdeaRepository
	skills   pgrepo.SkillRepository
	provider llm.Provider
	logs     GenerationLogService
	cache    cache.Cache
	cacheTTL time.Duration
	timeout  time.Duration
	parser   *ideagen.Parser
	log      *logrus.Logger
}

// NewIdeaService wires the orchestrator. logs and c may be nil. timeout bounds the model call;
// zero leaves it to the provider's own client.
func NewIdeaService(
	ideas pgrepo.IdeaRepository,
	skills pgrepo.SkillRepository,
	provider llm.Provider,
	logs GenerationLogService,
	c cache.Cache,
	cacheTTL, timeout time.Duration,
	l *logrus.Logger,
) IdeaService {
	if l == nil {
		l = logrus.StandardLogger()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ideaService{
		ideas:    ideas,
		skills:   skills,
		provider: provider,
		logs:     logs,
		cache:    c,
		cacheTTL: cacheTTL,
		timeout:  timeout,
		parser:   ideagen.NewParser(l),
		log:      l,
	}
}

func (s *ideaService) Generate(ctx context.Context, skill models.UserSkill) IdeaResult {
	const op = "IdeaService.Generate"

	if err := ValidateSkill(op, skill.TechStack, skill.Goal); err != nil {
		return IdeaResult{Err: err}
	}

	prompt := ideagen.BuildPrompt(skill)
	start := time.Now()

	// The call runs to completion even if the caller goes away; only the timeout stops it.
	callCtx := context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, s.timeout)
		defer cancel()
	}

	var res IdeaResult
	raw, err := s.provider.GenerateText(callCtx, prompt)
	if err != nil {
		res.Err = classifyProviderError(op, err)
	} else if ideas := s.parser.Parse(raw, skill.UserID, skill.SkillID); len(ideas) == 0 {
		res.Err = utils.E(utils.CodeNoIdeasParsed, op, MsgUnparseable, nil)
	} else {
		res.Ideas = ideas
	}

	elapsed := time.Since(start)
	fields := logrus.Fields{
		"op":       op,
		"user_id":  skill.UserID,
		"skill_id": skill.SkillID,
		"provider": s.provider.Name(),
		"ms":       elapsed.Milliseconds(),
	}
	if res.Err != nil {
		s.log.WithFields(fields).WithError(res.Err).Warn("idea generation failed")
	} else {
		s.log.WithFields(fields).WithField("ideas", len(res.Ideas)).Info("ideas generated")
	}

	s.record(ctx, skill, prompt, raw, res, elapsed)
	return res
}

// record writes the attempt to the generation log. Failures are logged and dropped.
func (s *ideaService) record(ctx context.Context, skill models.UserSkill, prompt, raw string, res IdeaResult, elapsed time.Duration) {
	if s.logs == nil {
		return
	}

	entry := &models.GenerationLog{
		UserID:           skill.UserID,
		SkillID:          skill.SkillID,
		Model:            s.provider.Name(),
		Prompt:           prompt,
		RawText:          raw,
		Status:           models.GenerationDone,
		IdeaCount:        len(res.Ideas),
		ProcessingTimeMS: elapsed.Milliseconds(),
	}
	if res.Err != nil {
		entry.Status = models.GenerationFailed
		entry.ErrorMessage = utils.Message(res.Err)
		if ae, ok := asAppError(res.Err); ok {
			entry.ErrorCode = string(ae.Code)
		}
	}

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.logs.Record(logCtx, entry); err != nil {
		s.log.WithError(err).WithField("user_id", skill.UserID).Warn("generation log write failed")
	}
}

func (s *ideaService) GenerateAndSaveFirst(ctx context.Context, skill models.UserSkill) (*models.Idea, IdeaResult) {
	res := s.Generate(ctx, skill)
	if !res.OK() {
		return nil, res
	}

	first := res.Ideas[0]
	// Persist even when the caller has gone; the generation already happened.
	if _, err := s.Save(context.WithoutCancel(ctx), &first); err != nil {
		return nil, IdeaResult{Err: err}
	}
	return &first, res
}

func (s *ideaService) Save(ctx context.Context, idea *models.Idea) (int64, error) {
	const op = "IdeaService.Save"

	if idea == nil || idea.UserID == "" {
		return 0, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if idea.SkillID <= 0 {
		return 0, utils.E(utils.CodeInvalidArgument, op, "skill_id must be > 0", nil)
	}

	if _, err := s.skills.GetByID(ctx, idea.UserID, idea.SkillID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return 0, utils.E(utils.CodeNotFound, op, "skill not found", err)
		}
		return 0, utils.E(utils.CodeInternal, op, "failed to look up skill", err)
	}
	if idea.IdeaID != 0 {
		existing, err := s.ideas.ListByUserAndIdeaID(ctx, idea.UserID, idea.IdeaID)
		if err != nil {
			return 0, utils.E(utils.CodeInternal, op, "failed to look up idea", err)
		}
		if len(existing) == 0 {
			return 0, utils.E(utils.CodeNotFound, op, "idea not found", utils.ErrNotFound)
		}
	}

	if idea.CreatedAt.IsZero() {
		idea.CreatedAt = time.Now().UTC()
	}
	if err := s.ideas.Insert(ctx, idea); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return 0, utils.E(utils.CodeNotFound, op, "idea not found", err)
		}
		return 0, utils.E(utils.CodeInternal, op, "failed to save idea", err)
	}
	s.invalidate(ctx, idea.UserID)
	return idea.IdeaID, nil
}

func (s *ideaService) ListByUser(ctx context.Context, userID string) []models.Idea {
	const op = "IdeaService.ListByUser"

	key := cache.IdeaListKey(userID)
	if s.cache != nil {
		var cached []models.Idea
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.log.WithError(err).WithField("op", op).Debug("idea cache read failed")
		}
		if hit && cached != nil {
			return cached
		}
	}

	rows, err := s.ideas.ListByUser(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"op": op, "user_id": userID}).Error("failed to list ideas")
		return []models.Idea{}
	}
	if rows == nil {
		rows = []models.Idea{}
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, rows, s.cacheTTL); err != nil {
			s.log.WithError(err).WithField("op", op).Debug("idea cache write failed")
		}
	}
	return rows
}

func (s *ideaService) GetByID(ctx context.Context, userID string, ideaID int64) []models.Idea {
	const op = "IdeaService.GetByID"

	rows, err := s.ideas.ListByUserAndIdeaID(ctx, userID, ideaID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"op": op, "user_id": userID, "idea_id": ideaID}).Error("failed to get idea")
		return []models.Idea{}
	}
	if rows == nil {
		rows = []models.Idea{}
	}
	return rows
}

func (s *ideaService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cache.IdeaListKey(userID)); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("idea cache invalidation failed")
	}
}
