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
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   completionRequest
}

// fakeProvider is an httptest stand-in for the chat-completions API
type fakeProvider struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []capturedRequest
}

func newFakeProvider(t *testing.T, reply http.HandlerFunc) *fakeProvider {
	t.Helper()

	p := &fakeProvider{}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body completionRequest
		raw, err := io.ReadAll(r.Body)
		if !assert.NoError(t, err) || !assert.NoError(t, json.Unmarshal(raw, &body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		p.mu.Lock()
		p.requests = append(p.requests, capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		p.mu.Unlock()

		reply(w, r)
	}))
	t.Cleanup(p.server.Close)

	return p
}

func (p *fakeProvider) lastRequest(t *testing.T) capturedRequest {
	t.Helper()

	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.requests, "provider was not called")
	return p.requests[len(p.requests)-1]
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *fakeProvider) service(opts ...Option) *Service {
	base := []Option{
		WithBaseURL(p.server.URL),
		WithLogger(zap.NewNop()),
		WithTimeout(2 * time.Second),
	}
	return NewService("test-key", append(base, opts...)...) // pragma: allowlist secret
}

func replyContent(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "resp-1",
			"model": "sonar",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}
}

func replyRaw(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}
