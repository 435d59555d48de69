package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/buildmate/internal/models"
	"github.com/yoockh/buildmate/internal/services"
	"github.com/yoockh/buildmate/internal/utils"
	"github.com/yoockh/buildmate/internal/workers"
)

func init() { gin.SetMode(gin.TestMode) }

type stubSkills struct {
	services.SkillService
	skill *models.UserSkill
}

func (s stubSkills) GetByID(_ context.Context, userID string, skillID int64) (*models.UserSkill, error) {
	if s.skill == nil || s.skill.UserID != userID || s.skill.SkillID != skillID {
		return nil, utils.E(utils.CodeNotFound, "SkillService.GetByID", "skill not found", utils.ErrNotFound)
	}
	return s.skill, nil
}

type stubQueue struct {
	userID  string
	skillID int64
	err     error
}

func (q *stubQueue) Enqueue(_ context.Context, userID string, skillID int64) (string, error) {
	q.userID, q.skillID = userID, skillID
	return "job-1", q.err
}

type stubStream struct {
	owner string
	err   error
}

func (s stubStream) Owner(context.Context, string) (string, error)          { return s.owner, s.err }
func (s stubStream) LastStatus(context.Context, string) ([]byte, error)     { return nil, nil }
func (s stubStream) Subscribe(context.Context, string) workers.Subscription { panic("not reached") }

// orderedStream records the order in which the websocket touches the queue.
type orderedStream struct {
	mu         sync.Mutex
	calls      []string
	last       []byte
	receiveErr error
}

func (s *orderedStream) note(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *orderedStream) Owner(context.Context, string) (string, error) { return "u1", nil }

func (s *orderedStream) LastStatus(context.Context, string) ([]byte, error) {
	s.note("last")
	return s.last, nil
}

func (s *orderedStream) Subscribe(context.Context, string) workers.Subscription {
	s.note("subscribe")
	return &orderedSub{stream: s}
}

type orderedSub struct{ stream *orderedStream }

func (o *orderedSub) Receive(context.Context) (interface{}, error) {
	o.stream.note("confirm")
	if o.stream.receiveErr != nil {
		return nil, o.stream.receiveErr
	}
	return &redis.Subscription{Kind: "subscribe", Channel: "job:abc:status", Count: 1}, nil
}

func (o *orderedSub) ReceiveMessage(ctx context.Context) (*redis.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (o *orderedSub) Close() error { return nil }

func withUser(userID string, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		h(c)
	}
}

func serve(method, route, path string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, route, h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestGenerateAsync(t *testing.T) {
	skills := stubSkills{skill: &models.UserSkill{SkillID: 5, UserID: "u1"}}
	const route = "/skills/:skill_id/ideas/generate-async"

	q := &stubQueue{}
	h := NewSkillHandler(skills, nil, q)
	w := serve(http.MethodPost, route, "/skills/5/ideas/generate-async", withUser("u1", h.GenerateAsync))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"job_id":"job-1","skill_id":5,"status":"queued"}`, w.Body.String())
	assert.Equal(t, "u1", q.userID)
	assert.Equal(t, int64(5), q.skillID)

	w = serve(http.MethodPost, route, "/skills/5/ideas/generate-async", withUser("u2", h.GenerateAsync))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(http.MethodPost, route, "/skills/0/ideas/generate-async", withUser("u1", h.GenerateAsync))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	failing := NewSkillHandler(skills, nil, &stubQueue{err: utils.E(utils.CodeUnavailable, "JobQueue.Enqueue", "failed to enqueue generation", errors.New("redis down"))})
	w = serve(http.MethodPost, route, "/skills/5/ideas/generate-async", withUser("u1", failing.GenerateAsync))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = serve(http.MethodPost, route, "/skills/5/ideas/generate-async", withUser("", h.GenerateAsync))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJobWS_Authorization(t *testing.T) {
	const route = "/ws/jobs/:job_id"
	cases := []struct {
		name   string
		stream JobStream
		want   int
	}{
		{"disabled", nil, http.StatusServiceUnavailable},
		{"unknown job", stubStream{err: utils.ErrNotFound}, http.StatusNotFound},
		{"redis failure", stubStream{err: errors.New("conn reset")}, http.StatusServiceUnavailable},
		{"someone else's job", stubStream{owner: "u2"}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewWSHandler(tc.stream)
			w := serve(http.MethodGet, route, "/ws/jobs/abc", withUser("u1", h.JobWS))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func dialJob(t *testing.T, stream JobStream) *websocket.Conn {
	t.Helper()
	r := gin.New()
	r.GET("/ws/jobs/:job_id", withUser("u1", NewWSHandler(stream).JobWS))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/jobs/abc", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestJobWS_ReplaysLastStatusAfterSubscriptionConfirmed(t *testing.T) {
	stream := &orderedStream{last: []byte(`{"type":"job_status","job_id":"abc","status":"done"}`)}
	conn := dialJob(t, stream)

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, string(stream.last), string(msg))

	// terminal status closes the stream
	_, _, err = conn.ReadMessage()
	require.Error(t, err)

	stream.mu.Lock()
	defer stream.mu.Unlock()
	assert.Equal(t, []string{"subscribe", "confirm", "last"}, stream.calls)
}

func TestJobWS_UnconfirmedSubscriptionClosesStream(t *testing.T) {
	stream := &orderedStream{
		last:       []byte(`{"type":"job_status","job_id":"abc","status":"processing"}`),
		receiveErr: errors.New("connection reset"),
	}
	conn := dialJob(t, stream)

	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	stream.mu.Lock()
	defer stream.mu.Unlock()
	assert.Equal(t, []string{"subscribe", "confirm"}, stream.calls)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, isTerminal([]byte(`{"type":"job_status","status":"done"}`)))
	assert.True(t, isTerminal([]byte(`{"type":"job_status","status":"failed"}`)))
	assert.False(t, isTerminal([]byte(`{"type":"job_status","status":"processing"}`)))
	assert.False(t, isTerminal([]byte(`not json`)))
}

func TestWriteError_PlainError(t *testing.T) {
	w := serve(http.MethodGet, "/x", "/x", func(c *gin.Context) { writeError(c, errors.New("boom")) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":"INTERNAL","message":"Internal Server Error"}`, w.Body.String())
}
