package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-2.5-flash"

	maxResponseBytes = 10 << 20
)

// GeminiREST calls the Generative Language generateContent endpoint over plain HTTPS,
// authenticating with an API key in the query string.
type GeminiREST struct {
	APIKey  string
	BaseURL string
	Model   string
	httpDo  *http.Client
}

func NewGeminiREST(apiKey, baseURL, model string, timeout time.Duration) *GeminiREST {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiREST{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		httpDo:  &http.Client{Timeout: timeout},
	}
}

func (g *GeminiREST) Name() string { return "gemini-rest:" + g.Model }
func (g *GeminiREST) Close() error { return nil }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type safetyRating struct {
	Category    *string `json:"category"`
	Probability *string `json:"probability"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
			Role *string `json:"role"`
		} `json:"content"`
		FinishReason *string `json:"finishReason"`
		Index        *int    `json:"index"`
	} `json:"candidates"`
	PromptFeedback *struct {
		SafetyRatings []safetyRating `json:"safetyRatings"`
	} `json:"promptFeedback"`
}

// firstText returns candidates[0].content.parts[0].text, or "" when any step is missing.
func (r *generateContentResponse) firstText() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	c := r.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 || c.Parts[0].Text == nil {
		return ""
	}
	return *c.Parts[0].Text
}

func (g *GeminiREST) endpoint(key string) string {
	q := url.Values{}
	q.Set("key", key)
	return fmt.Sprintf("%s/v1/models/%s:generateContent?%s", g.BaseURL, url.PathEscape(g.Model), q.Encode())
}

func (g *GeminiREST) GenerateText(ctx context.Context, prompt string) (string, error) {
	if g.APIKey == "" {
		return "", errors.New("gemini api key is empty")
	}

	data, err := json.Marshal(generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(g.APIKey), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpDo.Do(httpReq)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = g.endpoint("REDACTED")
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &StatusError{Code: resp.StatusCode, Message: msg, Body: string(body)}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return "", ErrEmptyBody
	}
	var out *generateContentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode generateContent response: %w", err)
	}
	if out == nil {
		return "", ErrEmptyBody
	}

	text := out.firstText()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}
