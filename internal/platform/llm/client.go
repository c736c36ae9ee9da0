package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// JSONRequest asks for output conforming to a JSON schema.
type JSONRequest struct {
	Task       TaskType
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

// Client provides structured and streaming text generation.
type Client interface {
	// GenerateJSON returns the raw JSON document produced under a strict
	// json_schema response format.
	GenerateJSON(ctx context.Context, req JSONRequest) ([]byte, error)

	// StreamText forwards output_text deltas to onDelta as they arrive and
	// returns the full text. A non-nil error from onDelta aborts the stream.
	StreamText(ctx context.Context, system string, messages []Message, onDelta func(delta string) error) (string, error)

	Model() string
}

// OpenAI talks to the Responses API.
type OpenAI struct {
	cfg      Config
	http     *http.Client
	observer Observer
}

// NewOpenAI builds a client. A missing API key is not an error here; every
// call then fails with ErrNotConfigured before touching the network.
func NewOpenAI(cfg Config, observer Observer) *OpenAI {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &OpenAI{
		cfg: cfg.withDefaults(),
		http: &http.Client{
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		observer: observer,
	}
}

func (c *OpenAI) Model() string { return c.cfg.Model }

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model       string         `json:"model"`
	Input       []inputMessage `json:"input"`
	Text        *textFormat    `json:"text,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	Stream      bool           `json:"stream,omitempty"`
}

type textFormat struct {
	Format map[string]any `json:"format"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
}

func extractOutputText(resp responsesResponse) (text, refusal string) {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			switch c.Type {
			case "output_text":
				out.WriteString(c.Text)
			case "refusal":
				refusal = c.Refusal
			}
		}
	}
	return out.String(), refusal
}

func (c *OpenAI) GenerateJSON(ctx context.Context, req JSONRequest) ([]byte, error) {
	start := time.Now()
	out, err := c.generateJSON(ctx, req)
	c.observe(req.Task, start, err)
	return out, err
}

func (c *OpenAI) generateJSON(ctx context.Context, req JSONRequest) ([]byte, error) {
	if !c.cfg.Configured() {
		return nil, ErrNotConfigured
	}
	if req.SchemaName == "" || req.Schema == nil {
		return nil, errors.New("schema name and schema are required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body := responsesRequest{
		Model: c.cfg.Model,
		Input: []inputMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Text: &textFormat{Format: map[string]any{
			"type":   "json_schema",
			"name":   req.SchemaName,
			"schema": req.Schema,
			"strict": true,
		}},
		Temperature: c.cfg.Temperature,
	}

	resp, err := c.post(ctx, body, "application/json")
	if err != nil {
		return nil, c.wrapCtx(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.wrapCtx(ctx, fmt.Errorf("reading response: %w", err))
	}
	var decoded responsesResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrInvalidOutput, err)
	}
	text, refusal := extractOutputText(decoded)
	if refusal != "" {
		return nil, fmt.Errorf("%w: %s", ErrRefused, refusal)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: no output_text in response", ErrInvalidOutput)
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("%w: output is not JSON", ErrInvalidOutput)
	}
	return []byte(text), nil
}

func (c *OpenAI) StreamText(ctx context.Context, system string, messages []Message, onDelta func(delta string) error) (string, error) {
	start := time.Now()
	out, err := c.streamText(ctx, system, messages, onDelta)
	c.observe(TaskChat, start, err)
	return out, err
}

func (c *OpenAI) streamText(ctx context.Context, system string, messages []Message, onDelta func(delta string) error) (string, error) {
	if !c.cfg.Configured() {
		return "", ErrNotConfigured
	}
	input := make([]inputMessage, 0, len(messages)+1)
	if strings.TrimSpace(system) != "" {
		input = append(input, inputMessage{Role: "system", Content: system})
	}
	for _, m := range messages {
		input = append(input, inputMessage{Role: m.Role, Content: m.Content})
	}
	body := responsesRequest{Model: c.cfg.Model, Input: input, Temperature: c.cfg.Temperature, Stream: true}

	resp, err := c.post(ctx, body, "text/event-stream")
	if err != nil {
		return "", c.wrapCtx(ctx, err)
	}
	defer resp.Body.Close()

	var full strings.Builder
	err = streamSSE(resp.Body, func(event, data string) error {
		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			return nil
		}
		var obj struct {
			Type    string          `json:"type"`
			Delta   string          `json:"delta"`
			Refusal string          `json:"refusal"`
			Error   json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &obj); err != nil {
			return nil
		}
		evt := event
		if obj.Type != "" {
			evt = obj.Type
		}
		if obj.Refusal != "" {
			return fmt.Errorf("%w: %s", ErrRefused, obj.Refusal)
		}
		if len(obj.Error) > 0 && string(obj.Error) != "null" {
			return fmt.Errorf("openai stream error: %s", string(obj.Error))
		}
		if obj.Delta == "" || !strings.Contains(evt, "output_text.delta") {
			return nil
		}
		full.WriteString(obj.Delta)
		if onDelta != nil {
			return onDelta(obj.Delta)
		}
		return nil
	})
	if err != nil {
		return full.String(), c.wrapCtx(ctx, err)
	}
	return full.String(), nil
}

func (c *OpenAI) post(ctx context.Context, body responsesRequest, accept string) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/responses", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return resp, nil
}

// wrapCtx reports a deadline hit as ErrTimeout and keeps other errors as is.
func (c *OpenAI) wrapCtx(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func (c *OpenAI) observe(task TaskType, start time.Time, err error) {
	c.observer.OnCallComplete(CallEvent{
		Task:      task,
		Model:     c.cfg.Model,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
		ErrorCode: errorCode(err),
		Err:       err,
	})
}
