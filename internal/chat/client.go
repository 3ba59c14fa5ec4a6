package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the default OpenRouter API base URL.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// defaultTimeout bounds one request including the full stream drain.
const defaultTimeout = 120 * time.Second

// ErrContextOverflow reports that the endpoint rejected the request because
// the accumulated conversation exceeded the model's context window. Callers
// treat it as a terminal signal, not a failure.
var ErrContextOverflow = errors.New("context overflow")

// HTTPDoer abstracts the HTTP client used to reach the endpoint.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues streamed chat completions against an OpenRouter-compatible
// endpoint. It holds no mutable state and is safe for concurrent use.
type Client struct {
	apiKey  string
	baseURL string
	client  HTTPDoer
	timeout time.Duration
	prices  PriceTable
}

// Options configures a Client. APIKey is required; the rest default.
type Options struct {
	APIKey  string
	BaseURL string
	Client  HTTPDoer
	Timeout time.Duration
	Prices  PriceTable
}

// NewClient constructs a Client from explicit settings. It never reads the
// process environment.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  opts.Client,
		timeout: opts.Timeout,
		prices:  opts.Prices,
	}, nil
}

// chatRequest is the JSON payload sent to the endpoint.
type chatRequest struct {
	Model      string        `json:"model"`
	Stream     bool          `json:"stream"`
	Messages   []wireMessage `json:"messages"`
	Tools      []wireTool    `json:"tools,omitempty"`
	ToolChoice string        `json:"tool_choice,omitempty"`
	Usage      *usageOptions `json:"usage,omitempty"`
}

// usageOptions asks the endpoint to include token accounting in the stream.
type usageOptions struct {
	Include bool `json:"include"`
}

// wireMessage is a single chat message in wire form.
type wireMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content,omitempty"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

// wireTool describes a function tool in wire form.
type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

// wireFunction describes a tool's function signature.
type wireFunction struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// wireToolCall is a completed tool call in wire form.
type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

// Complete issues one streamed completion and assembles the full response.
// The call, including the stream drain, is bounded by the client's fixed
// wall-clock timeout. It is attempted exactly once; there are no retries.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Model) == "" {
		return Response{}, fmt.Errorf("model is required")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(buildChatRequest(req))
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return Response{}, classifyStatus(resp.StatusCode, string(body))
	}
	return decodeStream(resp.Body, req.Model, c.prices, req.OnDelta)
}

// classifyStatus maps a non-success HTTP response to an error. A client error
// referencing context length is the distinguished overflow signal; everything
// else is a generic failure.
func classifyStatus(status int, body string) error {
	trimmed := strings.TrimSpace(body)
	if status >= 400 && status < 500 && strings.Contains(strings.ToLower(trimmed), "context") {
		return fmt.Errorf("%w: status %d: %s", ErrContextOverflow, status, trimmed)
	}
	return fmt.Errorf("chat endpoint error: status %d: %s", status, trimmed)
}

func buildChatRequest(req Request) chatRequest {
	out := chatRequest{
		Model:    req.Model,
		Stream:   true,
		Messages: buildWireMessages(req.Messages),
		Usage:    &usageOptions{Include: true},
	}
	if len(req.Tools) > 0 {
		out.Tools = buildWireTools(req.Tools)
		out.ToolChoice = "auto"
	}
	return out
}

func buildWireMessages(messages []Message) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, msg := range messages {
		wire := wireMessage{Role: msg.Role, Content: msg.Content}
		for _, call := range msg.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, wireToolCall{
				ID:   call.ID,
				Type: "function",
				Function: functionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		out = append(out, wire)
	}
	return out
}

func buildWireTools(tools []Tool) []wireTool {
	out := make([]wireTool, 0, len(tools))
	for _, tool := range tools {
		params := tool.Parameters
		if params == nil {
			params = &Schema{Type: "object"}
		}
		out = append(out, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
