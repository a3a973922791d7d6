package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/scout/config"
)

// OpenAIClient streams chat completions from OpenAI or any API-compatible
// endpoint. It implements ModelClient.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	models     map[string]config.LLMModel
	httpClient *http.Client
	logger     *log.Logger
}

func NewOpenAIClient(cfg config.LLMConfig, logger *log.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai client: api key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[LLM] ", log.LstdFlags)
	}
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		models:     cfg.Models,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// wire types for the chat completions endpoint

type chatContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

type chatMsg struct {
	Role       string         `json:"role"`
	Content    any            `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type chatReq struct {
	Model       string     `json:"model"`
	Messages    []chatMsg  `json:"messages"`
	Tools       []chatTool `json:"tools,omitempty"`
	Stream      bool       `json:"stream"`
	Temperature *float64   `json:"temperature,omitempty"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Stream issues one streaming chat completion. The fragment channel closes
// when the model turn ends; the error channel then carries at most one
// stream-level failure and is closed.
func (c *OpenAIClient) Stream(ctx context.Context, model string, messages []Message, tools []ToolSpec) (<-chan Fragment, <-chan error) {
	fragCh := make(chan Fragment)
	errCh := make(chan error, 1)

	go func() {
		defer close(fragCh)
		defer close(errCh)
		if err := c.stream(ctx, model, messages, tools, fragCh); err != nil {
			errCh <- err
		}
	}()
	return fragCh, errCh
}

func (c *OpenAIClient) stream(ctx context.Context, model string, messages []Message, tools []ToolSpec, fragCh chan<- Fragment) error {
	reqBody := chatReq{
		Model:    model,
		Messages: toWireMessages(messages),
		Tools:    toWireTools(tools),
		Stream:   true,
	}
	if m, ok := c.models[model]; ok {
		if m.APIName != "" {
			reqBody.Model = m.APIName
		}
		if m.Temperature > 0 {
			t := m.Temperature
			reqBody.Temperature = &t
		}
		reqBody.MaxTokens = m.MaxTokens
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil
		}
		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Printf("skipping undecodable stream chunk: %v", err)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		frag := Fragment{Text: delta.Content}
		for _, tc := range delta.ToolCalls {
			frag.ToolCalls = append(frag.ToolCalls, ToolCallDelta{
				Index:     tc.Index,
				CallID:    tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		if frag.Text == "" && len(frag.ToolCalls) == 0 {
			continue
		}
		select {
		case fragCh <- frag:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

func toWireMessages(messages []Message) []chatMsg {
	out := make([]chatMsg, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, chatMsg{Role: "system", Content: m.Content})
		case RoleHuman:
			if len(m.Images) == 0 {
				out = append(out, chatMsg{Role: "user", Content: m.Content})
				continue
			}
			parts := []chatContentPart{{Type: "text", Text: m.Content}}
			for _, img := range m.Images {
				p := chatContentPart{Type: "image_url"}
				p.ImageURL = &struct {
					URL string `json:"url"`
				}{URL: img}
				parts = append(parts, p)
			}
			out = append(out, chatMsg{Role: "user", Content: parts})
		case RoleAI:
			msg := chatMsg{Role: "assistant", Content: m.Content}
			for _, tc := range m.ToolCalls {
				wire := chatToolCall{ID: tc.CallID, Type: "function"}
				wire.Function.Name = tc.Name
				wire.Function.Arguments = tc.Arguments
				msg.ToolCalls = append(msg.ToolCalls, wire)
			}
			out = append(out, msg)
		case RoleToolResult:
			out = append(out, chatMsg{Role: "tool", Content: m.Content, ToolCallID: m.CallID})
		}
	}
	return out
}

func toWireTools(tools []ToolSpec) []chatTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]chatTool, 0, len(tools))
	for _, t := range tools {
		props := map[string]any{}
		var required []string
		for name, arg := range t.Args {
			props[name] = map[string]any{
				"type":        string(arg.Type),
				"description": arg.Description,
			}
			if arg.Required {
				required = append(required, name)
			}
		}
		params := map[string]any{"type": "object", "properties": props}
		if len(required) > 0 {
			params["required"] = required
		}
		wire := chatTool{Type: "function"}
		wire.Function.Name = t.Name
		wire.Function.Description = t.Description
		wire.Function.Parameters = params
		out = append(out, wire)
	}
	return out
}

// Collect drains a model stream into a single completed message. Used for
// one-shot calls that do not need incremental delivery.
func Collect(ctx context.Context, llm ModelClient, model string, messages []Message) (Message, error) {
	fragCh, errCh := llm.Stream(ctx, model, messages, nil)
	var fragments []Fragment
	for f := range fragCh {
		fragments = append(fragments, f)
	}
	if err := <-errCh; err != nil {
		return Message{}, err
	}
	if len(fragments) == 0 {
		return Message{}, fmt.Errorf("model stream was empty")
	}
	return Reassemble(fragments, nil), nil
}
