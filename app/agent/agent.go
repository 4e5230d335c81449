package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"resumechat/types"
)

var errNoAnswer = errors.New("response has no answer field")

type AskRequest struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
}

type AskResponse struct {
	Answer *string `json:"answer"`
}

type Option func(*Client)

// WithGrounding sends the document text along with the question, cut down to
// maxTokens. counter may be nil, in which case words are counted instead.
func WithGrounding(maxTokens int, counter *TokenCounter) Option {
	return func(c *Client) {
		c.grounding = true
		c.maxTokens = maxTokens
		c.tokens = counter
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client posts questions to the inference backend.
type Client struct {
	url       string
	http      *http.Client
	grounding bool
	maxTokens int
	tokens    *TokenCounter
	logger    *slog.Logger
}

// NewClient builds a client for url. A zero timeout leaves the limit to the transport.
func NewClient(url string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask returns the backend's answer verbatim. Errors are *types.Failure with
// kind BackendUnreachable or BackendMalformed. An empty answer string counts
// as malformed, so callers never show a blank reply.
func (c *Client) Ask(ctx context.Context, question, document string) (string, error) {
	start := time.Now()
	defer func() {
		c.logger.Debug("backend call finished", "took", time.Since(start).String())
	}()

	req := AskRequest{Question: question}
	if c.grounding {
		req.Context = c.groundingText(document)
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", types.NewFailure(types.BackendMalformed, fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return "", types.NewFailure(types.BackendUnreachable, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", types.NewFailure(types.BackendUnreachable, fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.NewFailure(types.BackendUnreachable, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", types.NewFailure(types.BackendMalformed,
			fmt.Errorf("backend API error: status %d, body: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var askResp AskResponse
	if err := json.Unmarshal(body, &askResp); err != nil {
		return "", types.NewFailure(types.BackendMalformed, fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if askResp.Answer == nil || *askResp.Answer == "" {
		return "", types.NewFailure(types.BackendMalformed, errNoAnswer)
	}

	return *askResp.Answer, nil
}

func (c *Client) groundingText(document string) string {
	if c.maxTokens <= 0 {
		return document
	}
	if c.tokens != nil {
		return c.tokens.Truncate(document, c.maxTokens)
	}
	words := strings.Fields(document)
	if len(words) <= c.maxTokens {
		return document
	}
	return strings.Join(words[:c.maxTokens], " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
