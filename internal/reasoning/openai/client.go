package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"orvex/internal/config"
	"orvex/internal/domain"
	"orvex/internal/reasoning"
)

const apiURL = "https://api.openai.com/v1/chat/completions"

// Client implements port.ReasoningEngine against the OpenAI Chat
// Completions API, requesting structured output plus token logprobs.
type Client struct {
	apiKey      string
	model       string
	endpoint    string
	maxTokens   int
	topLogprobs int
	schemaName  string
	builder     *reasoning.PromptBuilder
	client      *http.Client
}

// NewClient creates a reasoning client from config.
func NewClient(cfg *config.ReasoningConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	topLogprobs := cfg.TopLogprobs
	if topLogprobs == 0 {
		topLogprobs = 5
	}
	return &Client{
		apiKey:      cfg.APIKey,
		model:       model,
		endpoint:    endpoint,
		maxTokens:   maxTokens,
		topLogprobs: topLogprobs,
		schemaName:  cfg.SchemaName,
		builder:     reasoning.NewPromptBuilder(),
		client:      &http.Client{Timeout: timeout},
	}
}

// ExtractOrder sends one structured extraction request and returns the
// raw payload with its token log-probabilities. The payload is not
// validated here; that is the normalizer's job.
func (c *Client) ExtractOrder(ctx context.Context, req *domain.ReasoningRequest) (*domain.ReasoningOutput, error) {
	system, user := c.builder.BuildMessages(req)

	schemaName := c.schemaName
	if schemaName == "" {
		schemaName = "order_v1"
	}

	reqBody := map[string]interface{}{
		"model":                 c.model,
		"max_completion_tokens": c.maxTokens,
		"messages": []map[string]interface{}{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"response_format": map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   schemaName,
				"strict": true,
				"schema": req.JSONSchema,
			},
		},
		"logprobs":     true,
		"top_logprobs": c.topLogprobs,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return nil, fmt.Errorf("reasoning request timed out: %w", domain.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("calling reasoning API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reasoning API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	return parseResponse(respBody, c.model)
}

func isClientTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// apiResponse models the Chat Completions response, including the
// per-token logprob block requested via logprobs/top_logprobs.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Logprobs struct {
			Content []struct {
				Token       string  `json:"token"`
				Logprob     float64 `json:"logprob"`
				TopLogprobs []struct {
					Token   string  `json:"token"`
					Logprob float64 `json:"logprob"`
				} `json:"top_logprobs"`
			} `json:"content"`
		} `json:"logprobs"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(body []byte, model string) (*domain.ReasoningOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "length" {
		return nil, fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	content := choice.Message.Content
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("model output is not valid JSON (raw: %s)", truncate(content, 500))
	}

	logprobs := make([]domain.TokenLogprob, 0, len(choice.Logprobs.Content))
	for _, tok := range choice.Logprobs.Content {
		tops := make([]float64, 0, len(tok.TopLogprobs))
		for _, alt := range tok.TopLogprobs {
			tops = append(tops, alt.Logprob)
		}
		logprobs = append(logprobs, domain.TokenLogprob{
			Token:       tok.Token,
			Logprob:     tok.Logprob,
			TopLogprobs: tops,
		})
	}

	return &domain.ReasoningOutput{
		RawPayload: json.RawMessage(content),
		Logprobs:   logprobs,
		ModelUsed:  model,
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
