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

// Package sonar orchestrates real-estate research calls against the
// Perplexity Sonar chat-completions API. Each capability builds a persona
// plus user prompt, makes one deadline-bound call and returns plain text.
package sonar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/scrollvest/internal/metrics"
)

// DefaultModel is the provider model used for every capability
const DefaultModel = "sonar"

// ErrInvalidRequest is returned for input rejected before any network call
var ErrInvalidRequest = errors.New("invalid research request")

// Service runs the research capabilities. It holds no mutable state and is
// safe for concurrent use.
type Service struct {
	client   *Client
	model    string
	logger   *zap.Logger
	recorder *metrics.Recorder
}

type serviceOptions struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	model      string
	logger     *zap.Logger
	recorder   *metrics.Recorder
}

// Option configures a Service
type Option func(*serviceOptions)

// WithBaseURL overrides the provider base URL
func WithBaseURL(baseURL string) Option {
	return func(o *serviceOptions) { o.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client used for provider calls
func WithHTTPClient(client *http.Client) Option {
	return func(o *serviceOptions) { o.httpClient = client }
}

// WithTimeout overrides the per-call deadline
func WithTimeout(timeout time.Duration) Option {
	return func(o *serviceOptions) { o.timeout = timeout }
}

// WithModel overrides the provider model
func WithModel(model string) Option {
	return func(o *serviceOptions) { o.model = model }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *serviceOptions) { o.logger = logger }
}

// WithRecorder sets the metrics recorder
func WithRecorder(recorder *metrics.Recorder) Option {
	return func(o *serviceOptions) { o.recorder = recorder }
}

// NewService creates a research service authenticated with apiKey
func NewService(apiKey string, opts ...Option) *Service {
	o := serviceOptions{
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.model == "" {
		o.model = DefaultModel
	}

	return &Service{
		client:   NewClient(apiKey, o.baseURL, o.httpClient, o.timeout, o.logger),
		model:    o.model,
		logger:   o.logger,
		recorder: o.recorder,
	}
}

// ConductMarketResearch returns a market narrative for location
func (s *Service) ConductMarketResearch(ctx context.Context, location string, opts MarketResearchOptions) (string, error) {
	messages := []Message{
		{Role: RoleSystem, Content: MarketResearchPersona},
		{Role: RoleUser, Content: BuildMarketResearchPrompt(location, opts)},
	}

	return s.complete(ctx, CapabilityMarketResearch, messages, opts.SearchDepth.ContextSize())
}

// AnalyzeProperty returns an investment analysis for one listing
func (s *Service) AnalyzeProperty(ctx context.Context, req PropertyAnalysisRequest) (string, error) {
	messages := []Message{
		{Role: RoleSystem, Content: PropertyAnalysisPersona},
		{Role: RoleUser, Content: BuildPropertyAnalysisPrompt(req)},
	}

	return s.complete(ctx, CapabilityPropertyAnalysis, messages, SearchContextMedium)
}

// ChatWithAssistant answers userMessage in the context of history. History is
// sent verbatim; truncating it is the caller's job.
func (s *Service) ChatWithAssistant(ctx context.Context, userMessage string, history []Message) (string, error) {
	if err := ValidateHistory(history); err != nil {
		return "", err
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: ChatAssistantPersona})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: userMessage})

	return s.complete(ctx, CapabilityChat, messages, SearchContextMedium)
}

// CompareMarkets ranks several markets against each other
func (s *Service) CompareMarkets(ctx context.Context, locations []string) (string, error) {
	if len(locations) == 0 {
		return "", fmt.Errorf("%w: at least one location is required", ErrInvalidRequest)
	}

	messages := []Message{
		{Role: RoleSystem, Content: MarketResearchPersona},
		{Role: RoleUser, Content: BuildMarketComparisonPrompt(locations)},
	}

	return s.complete(ctx, CapabilityMarketComparison, messages, SearchContextHigh)
}

// GetPortfolioInsights reviews a portfolio against the investor's goals
func (s *Service) GetPortfolioInsights(ctx context.Context, holdings []Holding, goals string) (string, error) {
	messages := []Message{
		{Role: RoleSystem, Content: PropertyAnalysisPersona},
		{Role: RoleUser, Content: BuildPortfolioInsightsPrompt(holdings, goals)},
	}

	return s.complete(ctx, CapabilityPortfolioInsights, messages, SearchContextMedium)
}

func (s *Service) complete(ctx context.Context, capability Capability, messages []Message, size SearchContextSize) (string, error) {
	done := s.recorder.Start(string(capability))
	start := time.Now()

	req := completionRequest{
		Model:            s.model,
		Messages:         messages,
		WebSearchOptions: webSearchOptions{SearchContextSize: size},
	}

	var resp APIResponse
	if err := s.client.Post(ctx, ChatCompletionsPath, req, &resp); err != nil {
		done(metrics.OutcomeError)
		s.logger.Error("Research capability failed",
			zap.String("capability", string(capability)),
			zap.String("search_context_size", string(size)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return "", err
	}

	completion := FirstCompletion(&resp)
	if !completion.Present {
		done(metrics.OutcomeFallback)
		s.logger.Warn("Provider response had no content, using fallback",
			zap.String("capability", string(capability)),
			zap.Int("choices", len(resp.Choices)))
		return FallbackResponse, nil
	}

	done(metrics.OutcomeSuccess)

	fields := []zap.Field{
		zap.String("capability", string(capability)),
		zap.String("search_context_size", string(size)),
		zap.Int("message_count", len(messages)),
		zap.Int("citations", len(resp.Citations)),
		zap.Duration("duration", time.Since(start)),
	}
	if resp.Usage != nil {
		fields = append(fields, zap.Int("total_tokens", resp.Usage.TotalTokens))
	}
	s.logger.Info("Research capability completed", fields...)

	return completion.Text, nil
}
