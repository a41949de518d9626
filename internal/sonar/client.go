// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sonar

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

	"go.uber.org/zap"

	"github.com/your-org/scrollvest/internal/resilience"
)

const (
	// DefaultBaseURL is the Perplexity API root
	DefaultBaseURL = "https://api.perplexity.ai"
	// ChatCompletionsPath is the chat-completions endpoint relative to the base URL
	ChatCompletionsPath = "/chat/completions"
	// UnavailablePrefix starts every transport error message
	UnavailablePrefix = "Market research service unavailable"
	// TimeoutDetail is the error detail reported when the deadline fires
	TimeoutDetail = "Request timed out. Please try again."

	maxResponseBody = 4 << 20
)

// Client issues single POST requests to the provider under a hard deadline
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// NewClient creates a provider client. A zero timeout means the 30s default.
func NewClient(apiKey, baseURL string, httpClient *http.Client, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = resilience.DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger,
	}
}

// Post sends body as JSON to path and decodes the JSON response into out.
// Transport failures, non-2xx statuses and the deadline all surface as one
// SERVICE_UNAVAILABLE ServiceError.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := resilience.Do(ctx, c.timeout, c.logger, func(ctx context.Context) ([]byte, error) {
		return c.send(ctx, path, payload)
	})
	if err != nil {
		return unavailable(err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return unavailable(fmt.Errorf("decode response: %w", err))
	}

	return nil
}

func (c *Client) send(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Provider returned non-success status",
			zap.Int("status_code", resp.StatusCode),
			zap.String("path", path))
		return nil, &statusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// statusError carries a non-2xx provider response; the body is the detail
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return http.StatusText(e.StatusCode)
	}
	return e.Body
}

func unavailable(err error) error {
	detail := err.Error()
	if errors.Is(err, resilience.ErrOperationTimedOut) {
		detail = TimeoutDetail
	}
	return resilience.NewServiceUnavailableError(fmt.Sprintf("%s: %s", UnavailablePrefix, detail), err)
}
