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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/scrollvest/internal/config"
	"github.com/your-org/scrollvest/internal/sonar"
)

// fakeSonar records request bodies and answers with a fixed completion
type fakeSonar struct {
	server *httptest.Server

	mu     sync.Mutex
	bodies []map[string]any
}

func newFakeSonar(t *testing.T, content string) *fakeSonar {
	t.Helper()

	f := &fakeSonar{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		f.mu.Lock()
		f.bodies = append(f.bodies, body)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeSonar) requests() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.bodies...)
}

func userPrompt(t *testing.T, body map[string]any) string {
	t.Helper()
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, messages)
	return messages[len(messages)-1].(map[string]any)["content"].(string)
}

// isolateEnv runs the command from an empty directory with only the given key
func isolateEnv(t *testing.T, apiKey, baseURL string) {
	t.Helper()
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("SCROLLVEST_SONAR_APIKEY", "")
	t.Setenv("PERPLEXITY_API_KEY", apiKey)
	t.Setenv("SONAR_BASE_URL", baseURL)
	t.Setenv("LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.ElementsMatch(t, []string{"serve", "research", "analyze", "compare", "portfolio", "chat"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestCommandArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "research without location", args: []string{"research"}},
		{name: "compare without locations", args: []string{"compare"}},
		{name: "analyze without price", args: []string{"analyze", "--location", "Accra", "--type", "residential"}},
		{name: "analyze without type", args: []string{"analyze", "--location", "Accra", "--price", "150000"}},
		{name: "portfolio without holdings", args: []string{"portfolio", "--goals", "income"}},
		{name: "unknown flag", args: []string{"research", "Lagos", "--bogus"}},
		{name: "invalid price", args: []string{"analyze", "--location", "Accra", "--type", "residential", "--price", "cheap"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sonarAPI := newFakeSonar(t, "unused")
			isolateEnv(t, "pplx-key", sonarAPI.server.URL)

			_, err := execute(t, tt.args...)

			assert.Error(t, err)
			assert.Empty(t, sonarAPI.requests())
		})
	}
}

func TestResearchCommand(t *testing.T) {
	sonarAPI := newFakeSonar(t, "  Lagos is growing.  ")
	isolateEnv(t, "pplx-key", sonarAPI.server.URL)

	out, err := execute(t, "research", "Lagos, Nigeria", "--depth", "comprehensive", "--comparables", "-t", "commercial")

	require.NoError(t, err)
	assert.Equal(t, "Lagos is growing.\n", out)

	requests := sonarAPI.requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "high", requests[0]["web_search_options"].(map[string]any)["search_context_size"])
	prompt := userPrompt(t, requests[0])
	assert.Contains(t, prompt, "Lagos, Nigeria")
	assert.Contains(t, prompt, "commercial")
	assert.Contains(t, prompt, sonar.ComparablesInstruction)
}

func TestResearchCommand_MissingAPIKey(t *testing.T) {
	sonarAPI := newFakeSonar(t, "unused")
	isolateEnv(t, "", sonarAPI.server.URL)

	_, err := execute(t, "research", "Lagos")

	assert.ErrorIs(t, err, config.ErrAPIKeyNotConfigured)
	assert.Empty(t, sonarAPI.requests())
}

func TestAnalyzeCommand(t *testing.T) {
	sonarAPI := newFakeSonar(t, "Buy")
	isolateEnv(t, "pplx-key", sonarAPI.server.URL)

	out, err := execute(t, "analyze", "--location", "Accra, Ghana", "--type", "commercial", "--price", "150000", "-f", "Garden", "-f", "Pool")

	require.NoError(t, err)
	assert.Equal(t, "Buy\n", out)

	prompt := userPrompt(t, sonarAPI.requests()[0])
	assert.Contains(t, prompt, "$150,000")
	assert.Contains(t, prompt, "commercial")
	assert.NotContains(t, prompt, "residential")
	assert.Contains(t, prompt, "Features: Garden, Pool")
}

func TestCompareCommand(t *testing.T) {
	sonarAPI := newFakeSonar(t, "Nairobi first")
	isolateEnv(t, "pplx-key", sonarAPI.server.URL)

	out, err := execute(t, "compare", "Lagos", "Nairobi", "Accra")

	require.NoError(t, err)
	assert.Equal(t, "Nairobi first\n", out)
	assert.Contains(t, userPrompt(t, sonarAPI.requests()[0]), "Lagos, Nairobi, Accra")
}

func TestPortfolioCommand(t *testing.T) {
	sonarAPI := newFakeSonar(t, "Diversify")
	isolateEnv(t, "pplx-key", sonarAPI.server.URL)

	out, err := execute(t, "portfolio", "--holding", "Lagos, Nigeria:residential:2500", "--holding", "Nairobi:commercial:10000", "-g", "income")

	require.NoError(t, err)
	assert.Equal(t, "Diversify\n", out)

	prompt := userPrompt(t, sonarAPI.requests()[0])
	assert.Contains(t, prompt, "Lagos, Nigeria (residential): $2,500")
	assert.Contains(t, prompt, "Nairobi (commercial): $10,000")
	assert.Contains(t, prompt, "income")
}

func TestParseHoldings(t *testing.T) {
	tests := []struct {
		name     string
		raw      []string
		expected []sonar.Holding
		wantErr  bool
	}{
		{
			name:     "simple",
			raw:      []string{"Lagos:residential:2500"},
			expected: []sonar.Holding{{Location: "Lagos", PropertyType: "residential", Value: 2500}},
		},
		{
			name:     "location with colon",
			raw:      []string{"Unit 4: Ikoyi:mixed:1200.5"},
			expected: []sonar.Holding{{Location: "Unit 4: Ikoyi", PropertyType: "mixed", Value: 1200.5}},
		},
		{name: "missing type", raw: []string{"Lagos:2500"}, wantErr: true},
		{name: "bad value", raw: []string{"Lagos:residential:lots"}, wantErr: true},
		{name: "empty", raw: []string{""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holdings, err := parseHoldings(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, holdings)
		})
	}
}

// scriptedChatter replays canned replies and records the history it was given
type scriptedChatter struct {
	replies   []string
	failAt    int
	histories [][]sonar.Message
}

func (s *scriptedChatter) ChatWithAssistant(_ context.Context, _ string, history []sonar.Message) (string, error) {
	s.histories = append(s.histories, history)
	call := len(s.histories)
	if call == s.failAt {
		return "", errors.New("Market research service unavailable: Request timed out. Please try again.")
	}
	return s.replies[call-1], nil
}

func TestChatSession(t *testing.T) {
	assistant := &scriptedChatter{replies: []string{"one", "two", "three"}}
	session := &chatSession{assistant: assistant, historyLimit: 2, logger: zap.NewNop()}

	var out bytes.Buffer
	err := session.run(context.Background(), strings.NewReader("first\n\nsecond\nthird\nexit\nignored\n"), &out)

	require.NoError(t, err)
	require.Len(t, assistant.histories, 3)
	assert.Empty(t, assistant.histories[0])
	assert.Equal(t, []sonar.Message{
		{Role: sonar.RoleUser, Content: "first"},
		{Role: sonar.RoleAssistant, Content: "one"},
	}, assistant.histories[1])
	assert.Equal(t, []sonar.Message{
		{Role: sonar.RoleUser, Content: "second"},
		{Role: sonar.RoleAssistant, Content: "two"},
	}, assistant.histories[2])
	assert.Contains(t, out.String(), "three")
	assert.NotContains(t, out.String(), "ignored")
}

func TestChatSession_Failure(t *testing.T) {
	assistant := &scriptedChatter{replies: []string{"", "ok"}, failAt: 1}
	session := &chatSession{assistant: assistant, historyLimit: 10, logger: zap.NewNop()}

	var out bytes.Buffer
	err := session.run(context.Background(), strings.NewReader("hello\nagain\n"), &out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Sorry, I couldn't reach the research service: Market research service unavailable: Request timed out. Please try again.")
	require.Len(t, assistant.histories, 2)
	assert.Empty(t, assistant.histories[1])
}

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		enabled bool
	}{
		{name: "json info", cfg: config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, enabled: true},
		{name: "text error", cfg: config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, enabled: false},
		{name: "unknown level", cfg: config.LoggingConfig{Level: "verbose", Format: "json"}, enabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := initializeLogger(tt.cfg, "stderr")
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, logger.Core().Enabled(zap.InfoLevel))
		})
	}
}

func testConfig(apiKey, baseURL string) *config.Config {
	return &config.Config{
		Sonar:   config.SonarConfig{APIKey: apiKey, BaseURL: baseURL, Model: "sonar", Timeout: 5},
		Server:  config.ServerConfig{Port: "0", Mode: "test", RateBurst: 10},
		Chat:    config.ChatConfig{HistoryLimit: 10},
		Logging: config.LoggingConfig{Level: "error", Format: "json", Output: "stdout"},
	}
}

func TestBuildRouter(t *testing.T) {
	t.Setenv("PERPLEXITY_API_KEY", "")
	sonarAPI := newFakeSonar(t, "Hello investor")
	holder := config.NewHolder(testConfig("pplx-key", sonarAPI.server.URL))
	reg := prometheus.NewRegistry()

	router, err := buildRouter(zap.NewNop(), holder, reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response":"Hello investor"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `scrollvest_capability_requests_total{capability="chat",outcome="success"} 1`)
}

func TestBuildRouter_ReloadedConfiguration(t *testing.T) {
	t.Setenv("PERPLEXITY_API_KEY", "")
	sonarAPI := newFakeSonar(t, "ok")
	holder := config.NewHolder(testConfig("", sonarAPI.server.URL))
	reg := prometheus.NewRegistry()

	router, err := buildRouter(zap.NewNop(), holder, reg, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"API key not configured"}`, w.Body.String())
	assert.Empty(t, sonarAPI.requests())

	reloaded := testConfig("rotated-key", sonarAPI.server.URL)
	reloaded.Sonar.Model = "sonar-pro"
	holder.Store(reloaded)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, sonarAPI.requests(), 1)
	assert.Equal(t, "sonar-pro", sonarAPI.requests()[0]["model"])
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir for Go < 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
