package ai

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	gigaChatAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2"
	gigaChatBaseURL = "https://gigachat.devices.sberbank.ru/api/v1"

	GigaChatScopePersonal = "GIGACHAT_API_PERS"
)

type gigaChatToken struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

type gigaChatError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GigaChatClient calls the GigaChat api, which has no json mode: the prompt
// carries the format instructions instead.
type GigaChatClient struct {
	authURL     string
	baseURL     string
	basicAuth   string
	scope       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client

	mu          sync.Mutex
	token       *gigaChatToken
	tokenExpiry time.Time
}

func NewGigaChatClient(authorizationKey, scope string, temperature float64, maxTokens int, timeout time.Duration) *GigaChatClient {
	if scope == "" {
		scope = GigaChatScopePersonal
	}

	return &GigaChatClient{
		authURL:     gigaChatAuthURL,
		baseURL:     gigaChatBaseURL,
		basicAuth:   "Basic " + authorizationKey,
		scope:       scope,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				// the api is served with a certificate of the russian root ca
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
		},
	}
}

func (c *GigaChatClient) Generate(ctx context.Context, model string, prompt Prompt) (string, error) {
	accessToken, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	request := chatCompletionRequest{
		Model:       model,
		Messages:    buildMessages(prompt),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
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
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Request-ID", uuid.NewString())

	body, err := c.do(req)
	if err != nil {
		return "", err
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

// accessToken returns a cached oauth token and refreshes it a minute before
// it expires.
func (c *GigaChatClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && time.Now().Before(c.tokenExpiry) {
		return c.token.AccessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+"/oauth", strings.NewReader("scope="+c.scope))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.basicAuth)
	req.Header.Set("RqUID", uuid.NewString())

	body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	var token gigaChatToken
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	c.token = &token
	c.tokenExpiry = time.UnixMilli(token.ExpiresAt).Add(-time.Minute)

	return token.AccessToken, nil
}

func (c *GigaChatClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp gigaChatError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return body, nil
}
