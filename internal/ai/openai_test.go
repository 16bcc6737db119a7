package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, RoleSystem, req.Messages[0].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"city\":\"Basra\"}"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL+"/", "secret", 0.1, 100, time.Second)
	out, err := client.Generate(context.Background(), "gpt-4o-mini", Prompt{System: "sys", User: "basra", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"city":"Basra"}`, out)
}

func TestOpenAIClient_GenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "secret", 0.1, 100, time.Second)
	_, err := client.Generate(context.Background(), "gpt-4o", Prompt{User: "x"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "rate limited", apiErr.Message)
}

func TestGigaChatClient_RefreshesToken(t *testing.T) {
	var tokenCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth":
			tokenCalls++
			assert.Equal(t, "Basic key", r.Header.Get("Authorization"))
			expires := time.Now().Add(30 * time.Minute).UnixMilli()
			_ = json.NewEncoder(w).Encode(gigaChatToken{AccessToken: "tok", ExpiresAt: expires})
		case "/chat/completions":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewGigaChatClient("key", "", 0.1, 100, time.Second)
	client.authURL = server.URL
	client.baseURL = server.URL
	client.httpClient = server.Client()

	for i := 0; i < 2; i++ {
		out, err := client.Generate(context.Background(), "GigaChat", Prompt{User: "x"})
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	}
	assert.Equal(t, 1, tokenCalls)
}

func TestYandexGPTClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Api-Key secret", r.Header.Get("Authorization"))

		var req yandexCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt://folder-1/yandexgpt-lite/latest", req.ModelURI)
		assert.Equal(t, "200", req.CompletionOptions.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "sys", req.Messages[0].Text)

		_, _ = w.Write([]byte(`{"result":{"alternatives":[{"message":{"role":"assistant","text":"{\"city\":\"Erbil\"}"},"status":"ALTERNATIVE_STATUS_FINAL"}]}}`))
	}))
	defer server.Close()

	client := NewYandexGPTClient("secret", "folder-1", 0.1, 200, time.Second)
	client.endpoint = server.URL

	out, err := client.Generate(context.Background(), "yandexgpt-lite/latest", Prompt{System: "sys", User: "erbil", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"city":"Erbil"}`, out)
}

func TestYandexGPTClient_GenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"grpcCode":16,"httpCode":401,"message":"Unknown api key","httpStatus":"Unauthorized"}}`))
	}))
	defer server.Close()

	client := NewYandexGPTClient("bad", "folder-1", 0.1, 0, time.Second)
	client.endpoint = server.URL

	_, err := client.Generate(context.Background(), "gpt://folder-1/yandexgpt/latest", Prompt{User: "x"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Unknown api key", apiErr.Message)
}
