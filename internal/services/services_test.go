package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yoockh/buildmate/internal/cache"
	"github.com/yoockh/buildmate/internal/models"
	pgrepo "github.com/yoockh/buildmate/internal/repositories/postgres"
)

const twoIdeas = `Title: Habit Tracker
Description: Track daily habits offline.
Difficulty: Easy
Tech Used: Kotlin, Room
Learning Focus: Local persistence

Title: Weather Now
Description: Show the forecast for the current location.
Difficulty: Hard
TechUsed: Retrofit
LearningFocus: Networking`

type fakeProvider struct {
	mu      sync.Mutex
	text    string
	err     error
	calls   int
	prompts []string
	ctxErr  error
}

func (p *fakeProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.prompts = append(p.prompts, prompt)
	p.ctxErr = ctx.Err()
	return p.text, p.err
}

func (p *fakeProvider) Name() string { return "fake" }
func (p *fakeProvider) Close() error { return nil }

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeLogRepo struct {
	mu   sync.Mutex
	docs []models.GenerationLog
	err  error
}

func (r *fakeLogRepo) Insert(_ context.Context, l *models.GenerationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.docs = append(r.docs, *l)
	return nil
}

func (r *fakeLogRepo) ListByUser(_ context.Context, userID string, _ int64) ([]models.GenerationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.GenerationLog
	for _, d := range r.docs {
		if userID == "" || d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

type brokenIdeaRepo struct{}

var errDB = errors.New("database is gone")

func (brokenIdeaRepo) Insert(context.Context, *models.Idea) error { return errDB }
func (brokenIdeaRepo) ListByUser(context.Context, string) ([]models.Idea, error) {
	return nil, errDB
}
func (brokenIdeaRepo) ListByUserAndIdeaID(context.Context, string, int64) ([]models.Idea, error) {
	return nil, errDB
}
func (brokenIdeaRepo) DeleteBySkill(context.Context, int64) error { return errDB }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, pgrepo.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	db       *gorm.DB
	provider *fakeProvider
	logRepo  *fakeLogRepo
	cache    *cache.MemoryCache
	ideas    IdeaService
	skills   SkillService
	hook     *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)

	f := &fixture{
		db:       newTestDB(t),
		provider: &fakeProvider{text: twoIdeas},
		logRepo:  &fakeLogRepo{},
		cache:    cache.NewMemoryCache(64, time.Hour),
		hook:     hook,
	}
	logs := NewGenerationLogService(f.logRepo, time.Hour)
	skillRepo := pgrepo.NewSkillRepo(f.db)
	f.ideas = NewIdeaService(pgrepo.NewIdeaRepo(f.db), skillRepo, f.provider, logs, f.cache, time.Minute, time.Second, l)
	f.skills = NewSkillService(skillRepo, f.ideas, f.cache, l)
	return f
}

func sampleSkill(userID string) models.UserSkill {
	return models.UserSkill{
		UserID:          userID,
		TechStack:       "Kotlin",
		Libraries:       []string{"Room", "Retrofit"},
		ExperienceLevel: "Beginner",
		Goal:            "Build a portfolio app",
	}
}
