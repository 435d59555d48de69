package llm

import (
	"context"
	"errors"
	"fmt"
)

type Provider interface {
	// GenerateText sends prompt as the only message and returns the first candidate's text.
	GenerateText(ctx context.Context, prompt string) (string, error)
	Name() string
	Close() error
}

var (
	// ErrEmptyBody is returned when a successful response carries no body.
	ErrEmptyBody = errors.New("llm: empty response body")
	// ErrNoText is returned when the response has no candidate text or the text is blank.
	ErrNoText = errors.New("llm: no candidate text in response")
)

// StatusError is a non-success HTTP (or HTTP-equivalent) status from the endpoint.
type StatusError struct {
	Code    int
	Message string // status text or provider message
	Body    string // raw error body, may be empty
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: status %d %s", e.Code, e.Message)
}
