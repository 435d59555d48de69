package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/yoockh/buildmate/internal/providers/llm"
	"github.com/yoockh/buildmate/internal/utils"
)

// User-facing messages of the generation pipeline.
const (
	MsgTechStackRequired = "Tech stack cannot be empty. Please enter your main technology."
	MsgGoalRequired      = "Goal cannot be empty. Please describe what you want to build."

	MsgConnectionTimeout = "Connection timeout. Please check your internet and try again."
	MsgCannotConnect     = "Cannot connect to server. Please check your internet connection."

	MsgInvalidRequest = "Invalid request. Please check your input and try again."
	MsgAuthFailed     = "API authentication failed. Please check your API key configuration."
	MsgNotFound       = "API endpoint not found. Please check the endpoint configuration."
	MsgRateLimited    = "API rate limit exceeded. Please wait a moment and try again."
	MsgServerError    = "Server error. Please try again in a moment."

	MsgEmptyResponse = "Empty response from server. Please try again."
	MsgNoIdeas       = "No ideas generated. Please try again with different inputs."
	MsgUnparseable   = "Could not parse ideas from response. Please try again."
)

// ValidateSkill rejects profiles that cannot be sent for generation.
func ValidateSkill(op string, techStack, goal string) error {
	if strings.TrimSpace(techStack) == "" {
		return utils.E(utils.CodeInvalidArgument, op, MsgTechStackRequired, nil)
	}
	if strings.TrimSpace(goal) == "" {
		return utils.E(utils.CodeInvalidArgument, op, MsgGoalRequired, nil)
	}
	return nil
}

// classifyProviderError maps a failed GenerateText call onto the pipeline's error codes.
func classifyProviderError(op string, err error) error {
	var se *llm.StatusError
	switch {
	case errors.As(err, &se):
		return classifyStatus(op, se)
	case errors.Is(err, llm.ErrEmptyBody):
		return utils.E(utils.CodeEmptyResponse, op, MsgEmptyResponse, err)
	case errors.Is(err, llm.ErrNoText):
		return utils.E(utils.CodeEmptyResponse, op, MsgNoIdeas, err)
	default:
		return classifyTransport(op, err)
	}
}

func classifyStatus(op string, se *llm.StatusError) error {
	var msg string
	switch se.Code {
	case http.StatusBadRequest:
		msg = MsgInvalidRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		msg = MsgAuthFailed
	case http.StatusNotFound:
		msg = MsgNotFound
	case http.StatusTooManyRequests:
		msg = MsgRateLimited
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		msg = MsgServerError
	default:
		msg = fmt.Sprintf("API error: %d %s", se.Code, se.Message)
	}
	return utils.Upstream(op, se.Code, msg, se)
}

func classifyTransport(op string, err error) error {
	var (
		netErr net.Error
		dnsErr *net.DNSError
		opErr  *net.OpError
		urlErr *url.Error
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return utils.E(utils.CodeTransport, op, MsgConnectionTimeout, err)
	case errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.As(err, &opErr) && opErr.Op == "dial":
		return utils.E(utils.CodeTransport, op, MsgCannotConnect, err)
	case errors.As(err, &urlErr),
		errors.As(err, &netErr),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return utils.E(utils.CodeTransport, op, "Network error: "+detail(err, "Unable to connect"), err)
	default:
		return utils.E(utils.CodeTransport, op, "Network error: "+detail(err, "Unknown error"), err)
	}
}

// detail is the transport message without the url.Error "Post <url>:" prefix.
func detail(err error, fallback string) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	if err == nil || strings.TrimSpace(err.Error()) == "" {
		return fallback
	}
	return err.Error()
}

func asAppError(err error) (*utils.AppError, bool) {
	var ae *utils.AppError
	ok := errors.As(err, &ae)
	return ae, ok
}
