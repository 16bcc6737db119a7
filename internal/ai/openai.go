package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// APIError is a non-2xx answer of a provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ai api error: %d - %s", e.StatusCode, e.Message)
}

// OpenAIClient talks to any OpenAI compatible chat completions api.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

func NewOpenAIClient(baseURL, apiKey string, temperature float64, maxTokens int, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		apiKey:      apiKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, model string, prompt Prompt) (string, error) {
	request := chatCompletionRequest{
		Model:       model,
		Messages:    buildMessages(prompt),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if prompt.JSON {
		request.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return "", &APIError{StatusCode: resp.StatusCode, Message: errorResp.Error.Message}
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("model %s returned no choices", model)
	}

	return response.Choices[0].Message.Content, nil
}

func buildMessages(prompt Prompt) []chatMessage {
	messages := make([]chatMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, chatMessage{Role: RoleSystem, Content: prompt.System})
	}
	return append(messages, chatMessage{Role: RoleUser, Content: prompt.User})
}
