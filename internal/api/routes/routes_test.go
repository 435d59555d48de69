package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yoockh/buildmate/internal/api/handlers"
	"github.com/yoockh/buildmate/internal/api/middleware"
	"github.com/yoockh/buildmate/internal/cache"
	"github.com/yoockh/buildmate/internal/models"
	"github.com/yoockh/buildmate/internal/providers/llm"
	pgrepo "github.com/yoockh/buildmate/internal/repositories/postgres"
	"github.com/yoockh/buildmate/internal/services"
)

const secret = "routes-secret"

type scriptedProvider struct {
	text string
	err  error
}

func (p *scriptedProvider) GenerateText(context.Context, string) (string, error) { return p.text, p.err }
func (p *scriptedProvider) Name() string                                         { return "scripted" }
func (p *scriptedProvider) Close() error                                         { return nil }

type memLogs struct{ docs []models.GenerationLog }

func (m *memLogs) Insert(_ context.Context, l *models.GenerationLog) error {
	m.docs = append(m.docs, *l)
	return nil
}

func (m *memLogs) ListByUser(_ context.Context, userID string, _ int64) ([]models.GenerationLog, error) {
	var out []models.GenerationLog
	for i := len(m.docs) - 1; i >= 0; i-- {
		if userID == "" || m.docs[i].UserID == userID {
			out = append(out, m.docs[i])
		}
	}
	return out, nil
}

type app struct {
	router   *gin.Engine
	provider *scriptedProvider
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, pgrepo.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	l, _ := test.NewNullLogger()
	provider := &scriptedProvider{text: "Title: Habit Tracker\nDescription: Offline habits.\nDifficulty: easy\nTech Used: Room\nLearning Focus: Persistence\n\nTitle: Second\nDescription: Another."}
	c := cache.NewMemoryCache(64, time.Minute)
	logs := services.NewGenerationLogService(&memLogs{}, time.Hour)
	skillRepo := pgrepo.NewSkillRepo(db)
	ideas := services.NewIdeaService(pgrepo.NewIdeaRepo(db), skillRepo, provider, logs, c, time.Minute, time.Second, l)
	skills := services.NewSkillService(skillRepo, ideas, c, l)

	r := gin.New()
	r.Use(middleware.RequestLogger(l, "/ping"))
	RegisterRoutes(r, Deps{
		Auth:        middleware.JWTConfig{Secret: secret},
		Skill:       handlers.NewSkillHandler(skills, ideas, nil),
		Idea:        handlers.NewIdeaHandler(ideas),
		Generations: handlers.NewGenerationLogHandler(logs),
		WS:          handlers.NewWSHandler(nil),
	})
	return &app{router: r, provider: provider}
}

func token(t *testing.T, sub string, admin bool) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()}
	if admin {
		claims["app_metadata"] = map[string]any{"role": "admin"}
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func (a *app) call(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var skillBody = map[string]any{
	"tech_stack":       "Kotlin",
	"libraries":        []string{"Room"},
	"experience_level": "Beginner",
	"goal":             "Ship a first app",
}

func TestPing(t *testing.T) {
	a := newApp(t)
	w := a.call(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestRequiresAuth(t *testing.T) {
	a := newApp(t)
	w := a.call(t, http.MethodGet, "/ideas", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSaveAndGenerateFlow(t *testing.T) {
	a := newApp(t)
	tok := token(t, "u1", false)

	w := a.call(t, http.MethodPost, "/skills/generate", tok, skillBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	gen := decode[handlers.GenerateResponse](t, w)
	require.NotNil(t, gen.Idea)
	assert.NotZero(t, gen.SkillID)
	assert.Equal(t, gen.SkillID, gen.Idea.SkillID)
	assert.Equal(t, "Habit Tracker", gen.Idea.IdeaTitle)
	assert.Equal(t, models.DifficultyEasy, gen.Idea.Difficulty)

	w = a.call(t, http.MethodGet, "/ideas", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[handlers.IdeaListResponse](t, w)
	require.Len(t, list.Ideas, 1)

	w = a.call(t, http.MethodGet, "/ideas/"+itoa(gen.Idea.IdeaID), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Habit Tracker", decode[models.Idea](t, w).IdeaTitle)

	// other users see nothing
	other := token(t, "u2", false)
	assert.Equal(t, http.StatusNotFound, a.call(t, http.MethodGet, "/ideas/"+itoa(gen.Idea.IdeaID), other, nil).Code)
	assert.Empty(t, decode[handlers.IdeaListResponse](t, a.call(t, http.MethodGet, "/ideas", other, nil)).Ideas)

	// generate-only persists nothing
	w = a.call(t, http.MethodPost, "/skills/"+itoa(gen.SkillID)+"/ideas/generate", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[handlers.GenerateResponse](t, w).Ideas, 2)
	assert.Len(t, decode[handlers.IdeaListResponse](t, a.call(t, http.MethodGet, "/ideas", tok, nil)).Ideas, 1)

	// delete cascades
	assert.Equal(t, http.StatusNoContent, a.call(t, http.MethodDelete, "/skills/"+itoa(gen.SkillID), tok, nil).Code)
	assert.Empty(t, decode[handlers.IdeaListResponse](t, a.call(t, http.MethodGet, "/ideas", tok, nil)).Ideas)
	assert.Equal(t, http.StatusNotFound, a.call(t, http.MethodGet, "/skills/latest", tok, nil).Code)
}

func TestValidationAndUpstreamErrors(t *testing.T) {
	a := newApp(t)
	tok := token(t, "u1", false)

	body := map[string]any{"tech_stack": "", "goal": "x"}
	w := a.call(t, http.MethodPost, "/skills/generate", tok, body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code":"INVALID_ARGUMENT","message":"`+services.MsgTechStackRequired+`"}`, w.Body.String())

	a.provider.text, a.provider.err = "", &llm.StatusError{Code: http.StatusTooManyRequests, Message: "Too Many Requests"}
	w = a.call(t, http.MethodPost, "/skills/generate", tok, skillBody)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"code":"UPSTREAM_STATUS","message":"`+services.MsgRateLimited+`"}`, w.Body.String())

	// the skill was kept even though generation failed
	w = a.call(t, http.MethodGet, "/skills/latest", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Kotlin", decode[models.UserSkill](t, w).TechStack)
}

func TestSaveIdeaAndAsyncDisabled(t *testing.T) {
	a := newApp(t)
	tok := token(t, "u1", false)

	w := a.call(t, http.MethodPost, "/skills", tok, skillBody)
	require.Equal(t, http.StatusCreated, w.Code)
	skill := decode[models.UserSkill](t, w)

	w = a.call(t, http.MethodPost, "/ideas", tok, map[string]any{
		"skill_id":   skill.SkillID,
		"idea_title": "Manual",
		"difficulty": "pretty HARD",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	saved := decode[models.Idea](t, w)
	assert.Equal(t, models.DifficultyHard, saved.Difficulty)
	assert.Equal(t, "u1", saved.UserID)

	w = a.call(t, http.MethodPost, "/skills/"+itoa(skill.SkillID)+"/ideas/generate-async", tok, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	assert.Equal(t, http.StatusBadRequest, a.call(t, http.MethodDelete, "/skills/abc", tok, nil).Code)
}

func TestSaveIdea_CannotTouchAnotherUsersData(t *testing.T) {
	a := newApp(t)
	owner, other := token(t, "u1", false), token(t, "u2", false)

	w := a.call(t, http.MethodPost, "/skills/generate", owner, skillBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	gen := decode[handlers.GenerateResponse](t, w)
	require.Len(t, decode[handlers.IdeaListResponse](t, a.call(t, http.MethodGet, "/ideas", owner, nil)).Ideas, 1)

	w = a.call(t, http.MethodPost, "/skills", other, skillBody)
	require.Equal(t, http.StatusCreated, w.Code)
	otherSkill := decode[models.UserSkill](t, w)

	// reusing the owner's idea_id
	w = a.call(t, http.MethodPost, "/ideas", other, map[string]any{
		"idea_id":    gen.Idea.IdeaID,
		"skill_id":   otherSkill.SkillID,
		"idea_title": "pwned",
	})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	// attaching to the owner's skill
	w = a.call(t, http.MethodPost, "/ideas", other, map[string]any{
		"skill_id":   gen.SkillID,
		"idea_title": "squatter",
	})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	w = a.call(t, http.MethodGet, "/ideas/"+itoa(gen.Idea.IdeaID), owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Habit Tracker", decode[models.Idea](t, w).IdeaTitle)
	list := decode[handlers.IdeaListResponse](t, a.call(t, http.MethodGet, "/ideas", owner, nil)).Ideas
	require.Len(t, list, 1)
	assert.Equal(t, "Habit Tracker", list[0].IdeaTitle)
	assert.Empty(t, decode[handlers.IdeaListResponse](t, a.call(t, http.MethodGet, "/ideas", other, nil)).Ideas)
}

func TestAdminGenerations(t *testing.T) {
	a := newApp(t)
	user := token(t, "u1", false)

	require.Equal(t, http.StatusCreated, a.call(t, http.MethodPost, "/skills/generate", user, skillBody).Code)

	assert.Equal(t, http.StatusForbidden, a.call(t, http.MethodGet, "/admin/generations", user, nil).Code)

	w := a.call(t, http.MethodGet, "/admin/generations?user_id=u1", token(t, "root", true), nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[handlers.GenerationLogResponse](t, w)
	require.Len(t, out.Generations, 1)
	assert.Equal(t, models.GenerationDone, out.Generations[0].Status)
	assert.Equal(t, 2, out.Generations[0].IdeaCount)

	w = a.call(t, http.MethodGet, "/admin/generations?limit=-1", token(t, "root", true), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
