package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/at-ishikawa/lectio/internal/config"
	"github.com/at-ishikawa/lectio/internal/inference"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Client struct {
	httpClient       *resty.Client
	model            string
	maxRetryAttempts uint
	logger           *zap.Logger
}

func NewClient(cfg config.OpenAIConfig, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient:       client,
		model:            cfg.Model,
		maxRetryAttempts: cfg.MaxRetryAttempts,
		logger:           logger.Named("openai"),
	}
}

func (client *Client) Close() error {
	return client.httpClient.Close()
}

// GetModel returns the model name configured for this client
func (client *Client) GetModel() string {
	return client.model
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float32         `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type ChoiceMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	// Truncated responses usually parse on the next attempt
	if strings.Contains(errStr, "json.Unmarshal") || strings.Contains(errStr, "unexpected end of JSON input") {
		return true
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "i/o timeout") {
		return true
	}
	if strings.Contains(errStr, "response error 5") || strings.Contains(errStr, "response error 429") {
		return true
	}
	return false
}

// ExtractConcepts implements the inference.Client interface
func (client *Client) ExtractConcepts(
	ctx context.Context,
	params inference.ExtractConceptsRequest,
) (inference.ExtractConceptsResponse, error) {
	var result inference.ExtractConceptsResponse
	if err := retry.Do(
		func() error {
			response, err := client.extractConcepts(ctx, params)
			if err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			result = response
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(client.maxRetryAttempts+1),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
		retry.OnRetry(func(n uint, err error) {
			client.logger.Warn("retrying concept extraction", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	); err != nil {
		return inference.ExtractConceptsResponse{}, err
	}
	return result, nil
}

const extractConceptsPrompt = `You turn lecture transcripts into atomic study material.

INPUT
A JSON object with the video "title", an optional "description", optional "learning_objectives" supplied by the learner,
and "segments": timed transcript lines {"start": seconds, "end": seconds, "text": "..."}.

OUTPUT
Return ONLY a JSON object with these fields:
- "summary": 2-4 sentences describing what the video teaches
- "key_topics": 3-8 short topic names
- "learning_objectives": what a viewer should be able to do afterwards; keep the learner's objectives when given
- "concepts": an array of knowledge units, each
  {"title": "...", "content": "...", "type": "...", "start_time": n, "end_time": n, "confidence": n, "tags": ["..."]}

CONCEPT RULES
- "type" is exactly one of: concept, definition, insight, example, step, principle, fact, quote
- Use "definition" only when the speaker defines a term; the title is then the term itself
- "content" is self-contained: it must make sense without the video
- "start_time" and "end_time" come from the segments the concept is drawn from; end_time >= start_time >= 0
- "confidence" is between 0 and 1 and reflects how clearly the transcript supports the concept
- "tags" are lower-case keywords
- Prefer fewer, well-supported concepts over many vague ones

No text outside the JSON object.`

func (client *Client) getRequestBody(params inference.ExtractConceptsRequest) (ChatCompletionRequest, error) {
	input, err := json.Marshal(params)
	if err != nil {
		return ChatCompletionRequest{}, fmt.Errorf("json.Marshal > %w", err)
	}

	return ChatCompletionRequest{
		Model:          client.model,
		Temperature:    0.2,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
		Messages: []Message{
			{Role: RoleSystem, Content: extractConceptsPrompt},
			{Role: RoleUser, Content: string(input)},
		},
	}, nil
}

func (client *Client) extractConcepts(
	ctx context.Context,
	params inference.ExtractConceptsRequest,
) (inference.ExtractConceptsResponse, error) {
	if len(params.Segments) == 0 {
		return inference.ExtractConceptsResponse{}, nil
	}

	requestBody, err := client.getRequestBody(params)
	if err != nil {
		return inference.ExtractConceptsResponse{}, fmt.Errorf("getRequestBody > %w", err)
	}

	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(requestBody).
		SetResult(&ChatCompletionResponse{}).
		Post("/chat/completions")
	if err != nil {
		return inference.ExtractConceptsResponse{}, fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return inference.ExtractConceptsResponse{}, fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}

	responseBody := response.Result().(*ChatCompletionResponse)
	if responseBody == nil || len(responseBody.Choices) == 0 {
		return inference.ExtractConceptsResponse{}, fmt.Errorf("empty response body or choices: %s", response.String())
	}

	content := responseBody.Choices[0].Message.Content
	if content == "" {
		return inference.ExtractConceptsResponse{}, fmt.Errorf("empty response content: %s", response.String())
	}
	client.logger.Debug("openai response content",
		zap.String("title", params.Title),
		zap.Int("segments", len(params.Segments)),
		zap.Int("total_tokens", responseBody.Usage.TotalTokens),
	)

	var decoded inference.ExtractConceptsResponse
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &decoded); err != nil {
		client.logger.Error("failed to parse OpenAI response as JSON",
			zap.String("title", params.Title),
			zap.Error(err),
		)
		return inference.ExtractConceptsResponse{}, fmt.Errorf("json.Unmarshal(%s) > %w", content, err)
	}
	return decoded, nil
}

// extractJSONObject returns the first complete top-level JSON object in content,
// dropping prose or code fences a model may wrap around it.
func extractJSONObject(content string) string {
	firstBrace := -1
	braceCount := 0
	inString := false
	escapeNext := false

	for i, ch := range content {
		if escapeNext {
			escapeNext = false
			continue
		}
		if ch == '\\' && inString {
			escapeNext = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			if firstBrace == -1 {
				firstBrace = i
			}
			braceCount++
		case '}':
			if firstBrace == -1 {
				continue
			}
			braceCount--
			if braceCount == 0 {
				return content[firstBrace : i+1]
			}
		}
	}
	return content
}
