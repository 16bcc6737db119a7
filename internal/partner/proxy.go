package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/tajer-app/locations/internal/domain"
)

// Request is one call forwarded by the proxy to a partner api.
type Request struct {
	Partner  domain.Partner    `json:"partner"`
	Endpoint string            `json:"endpoint"`
	Method   string            `json:"method"`
	Token    string            `json:"token"`
	Payload  any               `json:"payload,omitempty"`
	Query    map[string]string `json:"queryParams,omitempty"`
}

// Proxy forwards authenticated calls to partner apis and returns the raw
// partner response body.
type Proxy interface {
	Invoke(ctx context.Context, req Request) (json.RawMessage, error)
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("partner proxy error: %d - %s", e.StatusCode, e.Body)
}

type HTTPProxy struct {
	baseURL    string
	key        string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPProxy creates a proxy client. rps limits outgoing calls, zero or
// less disables the limit.
func NewHTTPProxy(baseURL, key string, timeout time.Duration, rps float64) *HTTPProxy {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps) + 1
	}

	return &HTTPProxy{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		key:     key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (p *HTTPProxy) Invoke(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "wait for partner rate limit")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal proxy request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create proxy request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if p.key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.key)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "call %s %s", req.Partner, req.Endpoint)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read proxy response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if !json.Valid(respBody) {
		return nil, errors.Wrap(ErrInvalidResponseShape, "proxy response is not json")
	}

	return respBody, nil
}
