package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const yandexCompletionEndpoint = "https://llm.api.cloud.yandex.net/foundationModels/v1/completion"

// YandexGPTClient calls the Yandex Foundation Models completion api.
type YandexGPTClient struct {
	apiKey      string
	folderID    string
	endpoint    string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

type yandexMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type yandexCompletionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   string  `json:"maxTokens,omitempty"`
}

type yandexCompletionRequest struct {
	ModelURI          string                  `json:"modelUri"`
	CompletionOptions yandexCompletionOptions `json:"completionOptions"`
	Messages          []yandexMessage         `json:"messages"`
}

type yandexCompletionResponse struct {
	Result struct {
		Alternatives []struct {
			Message yandexMessage `json:"message"`
			Status  string        `json:"status"`
		} `json:"alternatives"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewYandexGPTClient(apiKey, folderID string, temperature float64, maxTokens int, timeout time.Duration) *YandexGPTClient {
	return &YandexGPTClient{
		apiKey:      apiKey,
		folderID:    folderID,
		endpoint:    yandexCompletionEndpoint,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// modelURI expands short names such as "yandexgpt-lite/latest" with the
// folder id.
func (c *YandexGPTClient) modelURI(model string) string {
	if strings.HasPrefix(model, "gpt://") {
		return model
	}
	return fmt.Sprintf("gpt://%s/%s", c.folderID, model)
}

// Generate has no json mode on this api, the caller validates the answer.
func (c *YandexGPTClient) Generate(ctx context.Context, model string, prompt Prompt) (string, error) {
	messages := make([]yandexMessage, 0, 2)
	for _, m := range buildMessages(prompt) {
		messages = append(messages, yandexMessage{Role: m.Role, Text: m.Content})
	}

	request := yandexCompletionRequest{
		ModelURI: c.modelURI(model),
		CompletionOptions: yandexCompletionOptions{
			Temperature: c.temperature,
		},
		Messages: messages,
	}
	if c.maxTokens > 0 {
		request.CompletionOptions.MaxTokens = strconv.Itoa(c.maxTokens)
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Api-Key %s", c.apiKey))
	if c.folderID != "" {
		req.Header.Set("x-folder-id", c.folderID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var response yandexCompletionResponse
	decodeErr := json.Unmarshal(body, &response)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && response.Error != nil && response.Error.Message != "" {
			return "", &APIError{StatusCode: resp.StatusCode, Message: response.Error.Message}
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	if len(response.Result.Alternatives) == 0 || response.Result.Alternatives[0].Message.Text == "" {
		return "", fmt.Errorf("empty result received from yandex gpt model %s", model)
	}

	return response.Result.Alternatives[0].Message.Text, nil
}
