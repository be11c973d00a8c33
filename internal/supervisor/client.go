package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"inferd/internal/llm"
	"inferd/internal/ports"
	"inferd/pkg/types"
)

// client issues single request/response completion calls against the
// spawned server's OpenAI-compatible endpoint.
type client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// Timeout=0 on the http.Client is intentional: every request carries a
// context deadline instead.
func newClient(timeout time.Duration) *client {
	return &client{httpClient: &http.Client{Timeout: 0}, timeout: timeout}
}

type chatCompletionPayload struct {
	Messages    []types.ChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
	Stream      bool                `json:"stream"`
}

// Complete posts the message sequence and normalizes the reply into plain
// text via the tolerant extractor.
func (c *client) Complete(ctx context.Context, port int, messages []types.ChatMessage, opts llm.Options) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	payload := chatCompletionPayload{
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("http://%s:%d/v1/chat/completions", ports.Loopback, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", httpStatusError{status: resp.StatusCode, body: string(b)}
	}
	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	text, ok := extractText(doc)
	if !ok {
		return "", emptyCompletionError{}
	}
	return text, nil
}
