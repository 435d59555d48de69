package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type VertexGemini struct {
	client    *vertexgenai.Client
	model     *vertexgenai.GenerativeModel
	modelName string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	m := c.GenerativeModel(modelName)
	return &VertexGemini{client: c, model: m, modelName: modelName}, nil
}

func (v *VertexGemini) Name() string { return "vertex:" + v.modelName }
func (v *VertexGemini) Close() error { return v.client.Close() }

// GenerateText streams the reply and joins the text parts of the first candidate.
func (v *VertexGemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	var sb strings.Builder

	it := v.model.GenerateContentStream(ctx, vertexgenai.Text(prompt))
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", grpcToStatusError(err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, p := range resp.Candidates[0].Content.Parts {
			if t, ok := p.(vertexgenai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

var grpcHTTPStatus = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.FailedPrecondition: http.StatusBadRequest,
	codes.Unauthenticated:    http.StatusUnauthorized,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.NotFound:           http.StatusNotFound,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.Internal:           http.StatusInternalServerError,
	codes.Unknown:            http.StatusInternalServerError,
	codes.Unavailable:        http.StatusServiceUnavailable,
	codes.Unimplemented:      http.StatusNotImplemented,
}

// grpcToStatusError translates server-side gRPC statuses into StatusError so callers classify
// both providers the same way. Deadline and cancellation errors pass through as transport failures.
func grpcToStatusError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.Canceled:
		return context.Canceled
	}
	code, ok := grpcHTTPStatus[st.Code()]
	if !ok {
		return err
	}
	return &StatusError{Code: code, Message: st.Message()}
}
