package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agui1era/Sentinex/internal/camera"
)

// Client talks to an OpenAI-compatible chat completions endpoint that hosts
// a vision model. One request carries the frame as a base64 data URI plus
// the camera's system prompt; retry policy belongs to the caller's cycle
// cadence, not here.
type Client struct {
	baseURL          string
	path             string
	apiKey           string
	model            string
	maxTokens        int
	maxResponseBytes int64
	client           *http.Client
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL          string
	Path             string
	APIKey           string
	Model            string
	MaxTokens        int
	Timeout          time.Duration
	MaxResponseBytes int64
}

// NewClient creates an inference client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Path == "" {
		cfg.Path = "/chat/completions"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 700
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = 4 * 1024 * 1024
	}

	return &Client{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		path:             cfg.Path,
		apiKey:           cfg.APIKey,
		model:            cfg.Model,
		maxTokens:        cfg.MaxTokens,
		maxResponseBytes: cfg.MaxResponseBytes,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type imagePart struct {
	Type     string       `json:"type"`
	ImageURL imagePartURL `json:"image_url"`
}

type imagePartURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// Analyze submits the frame and returns the parsed assessment. Transport
// failures (connect, timeout, non-2xx) come back as plain wrapped errors;
// malformed results come back as *ParseError.
func (c *Client) Analyze(ctx context.Context, frame *camera.Frame, systemPrompt string) (*Analysis, error) {
	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame.JPEG)

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []imagePart{
				{Type: "image_url", ImageURL: imagePartURL{URL: dataURI}},
			}},
		},
		Temperature: 0.1,
		MaxTokens:   c.maxTokens,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal inference request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create inference request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call inference endpoint: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, c.maxResponseBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}
	if int64(len(respBody)) > c.maxResponseBytes {
		return nil, fmt.Errorf("inference response exceeded limit (%d bytes)", c.maxResponseBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("inference endpoint status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("response body is not JSON: %v", err)}
	}
	if len(chat.Choices) == 0 {
		return nil, &ParseError{Reason: "response had no choices"}
	}

	return ParseAnalysis(chat.Choices[0].Message.Content)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
