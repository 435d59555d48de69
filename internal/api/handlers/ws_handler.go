package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yoockh/buildmate/internal/models"
	"github.com/yoockh/buildmate/internal/utils"
	"github.com/yoockh/buildmate/internal/workers"
)

// JobStream is the read side of the job queue used by the websocket.
type JobStream interface {
	Owner(ctx context.Context, jobID string) (string, error)
	LastStatus(ctx context.Context, jobID string) ([]byte, error)
	Subscribe(ctx context.Context, jobID string) workers.Subscription
}

type WSHandler struct {
	jobs     JobStream
	upgrader websocket.Upgrader
}

func NewWSHandler(jobs JobStream) *WSHandler {
	return &WSHandler{
		jobs: jobs,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

// isTerminal reports whether a status payload ends the job.
func isTerminal(payload []byte) bool {
	var job models.GenerationJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return false
	}
	return job.Status == models.JobDone || job.Status == models.JobFailed
}

// JobWS streams status updates of one generation job until it finishes or the client leaves.
func (h *WSHandler) JobWS(c *gin.Context) {
	const op = "WSHandler.JobWS"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if h.jobs == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "async generation is not enabled", nil))
		return
	}

	jobID := c.Param("job_id")
	if jobID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing job_id", nil))
		return
	}

	owner, err := h.jobs.Owner(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			writeError(c, utils.E(utils.CodeNotFound, op, "job not found", err))
			return
		}
		writeError(c, utils.E(utils.CodeUnavailable, op, "failed to look up job", err))
		return
	}
	if owner != userID {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.jobs.Subscribe(ctx, jobID)
	defer pubsub.Close()

	// wait for the subscription to be confirmed, then replay the stored status so nothing
	// published in between is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		return
	}
	if last, err := h.jobs.LastStatus(ctx, jobID); err == nil && last != nil {
		if werr := wc.writeText(last); werr != nil || isTerminal(last) {
			return
		}
	}

	// reader: only detects the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		m, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return
		}
		payload := []byte(m.Payload)
		if werr := wc.writeText(payload); werr != nil {
			return
		}
		if isTerminal(payload) {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
				time.Now().Add(time.Second))
			return
		}
	}
}
