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

// Package api exposes the research capabilities as JSON endpoints. Every
// handler parses its body, reads the provider credential, builds a service
// for the request and maps the outcome to 200 or 500.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/scrollvest/internal/config"
	"github.com/your-org/scrollvest/internal/resilience"
	"github.com/your-org/scrollvest/internal/sonar"
)

// Analyst is the set of research capabilities the endpoints call
type Analyst interface {
	ConductMarketResearch(ctx context.Context, location string, opts sonar.MarketResearchOptions) (string, error)
	AnalyzeProperty(ctx context.Context, req sonar.PropertyAnalysisRequest) (string, error)
	ChatWithAssistant(ctx context.Context, userMessage string, history []sonar.Message) (string, error)
	CompareMarkets(ctx context.Context, locations []string) (string, error)
	GetPortfolioInsights(ctx context.Context, holdings []sonar.Holding, goals string) (string, error)
}

// CredentialFunc returns the provider API key, or "" when none is configured
type CredentialFunc func() string

// AnalystFactory builds an Analyst for one request
type AnalystFactory func(apiKey string) Analyst

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Message string          `json:"message"`
	History []sonar.Message `json:"history"`
}

// ChatResponse is the success body of POST /api/chat
type ChatResponse struct {
	Response string `json:"response"`
}

// MarketResearchRequest is the body of POST /api/market-research
type MarketResearchRequest struct {
	Location string                      `json:"location"`
	Options  sonar.MarketResearchOptions `json:"options"`
}

// MarketComparisonRequest is the body of POST /api/market-comparison
type MarketComparisonRequest struct {
	Locations []string `json:"locations"`
}

// PortfolioInsightsRequest is the body of POST /api/portfolio-insights
type PortfolioInsightsRequest struct {
	Investments []sonar.Holding `json:"investments"`
	Goals       string          `json:"goals"`
}

// AnalysisResponse is the success body of the analysis endpoints
type AnalysisResponse struct {
	Analysis string `json:"analysis"`
}

// InsightsResponse is the success body of POST /api/portfolio-insights
type InsightsResponse struct {
	Insights string `json:"insights"`
}

// Handler serves the research endpoints
type Handler struct {
	credentials CredentialFunc
	newAnalyst  AnalystFactory
	logger      *zap.Logger
}

// NewHandler creates the endpoint handlers
func NewHandler(credentials CredentialFunc, newAnalyst AnalystFactory, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		credentials: credentials,
		newAnalyst:  newAnalyst,
		logger:      logger,
	}
}

// RegisterRoutes mounts the endpoints on r
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/api/chat", h.handleChat)
	r.POST("/api/market-research", h.handleMarketResearch)
	r.POST("/api/property-analysis", h.handlePropertyAnalysis)
	r.POST("/api/market-comparison", h.handleMarketComparison)
	r.POST("/api/portfolio-insights", h.handlePortfolioInsights)
}

func (h *Handler) handleChat(c *gin.Context) {
	var req ChatRequest
	if !h.bind(c, sonar.CapabilityChat, &req) {
		return
	}

	analyst, ok := h.analyst(c, sonar.CapabilityChat)
	if !ok {
		return
	}

	response, err := analyst.ChatWithAssistant(c.Request.Context(), req.Message, req.History)
	if err != nil {
		h.fail(c, sonar.CapabilityChat, err)
		return
	}

	c.JSON(http.StatusOK, ChatResponse{Response: response})
}

func (h *Handler) handleMarketResearch(c *gin.Context) {
	var req MarketResearchRequest
	if !h.bind(c, sonar.CapabilityMarketResearch, &req) {
		return
	}

	location := req.Location
	if location == "" {
		location = req.Options.Location
	}

	analyst, ok := h.analyst(c, sonar.CapabilityMarketResearch)
	if !ok {
		return
	}

	analysis, err := analyst.ConductMarketResearch(c.Request.Context(), location, req.Options)
	if err != nil {
		h.fail(c, sonar.CapabilityMarketResearch, err)
		return
	}

	c.JSON(http.StatusOK, AnalysisResponse{Analysis: analysis})
}

func (h *Handler) handlePropertyAnalysis(c *gin.Context) {
	var req sonar.PropertyAnalysisRequest
	if !h.bind(c, sonar.CapabilityPropertyAnalysis, &req) {
		return
	}

	analyst, ok := h.analyst(c, sonar.CapabilityPropertyAnalysis)
	if !ok {
		return
	}

	analysis, err := analyst.AnalyzeProperty(c.Request.Context(), req)
	if err != nil {
		h.fail(c, sonar.CapabilityPropertyAnalysis, err)
		return
	}

	c.JSON(http.StatusOK, AnalysisResponse{Analysis: analysis})
}

func (h *Handler) handleMarketComparison(c *gin.Context) {
	var req MarketComparisonRequest
	if !h.bind(c, sonar.CapabilityMarketComparison, &req) {
		return
	}

	analyst, ok := h.analyst(c, sonar.CapabilityMarketComparison)
	if !ok {
		return
	}

	analysis, err := analyst.CompareMarkets(c.Request.Context(), req.Locations)
	if err != nil {
		h.fail(c, sonar.CapabilityMarketComparison, err)
		return
	}

	c.JSON(http.StatusOK, AnalysisResponse{Analysis: analysis})
}

func (h *Handler) handlePortfolioInsights(c *gin.Context) {
	var req PortfolioInsightsRequest
	if !h.bind(c, sonar.CapabilityPortfolioInsights, &req) {
		return
	}

	analyst, ok := h.analyst(c, sonar.CapabilityPortfolioInsights)
	if !ok {
		return
	}

	insights, err := analyst.GetPortfolioInsights(c.Request.Context(), req.Investments, req.Goals)
	if err != nil {
		h.fail(c, sonar.CapabilityPortfolioInsights, err)
		return
	}

	c.JSON(http.StatusOK, InsightsResponse{Insights: insights})
}

func (h *Handler) bind(c *gin.Context, capability sonar.Capability, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.fail(c, capability, resilience.NewBadRequestError("Invalid request format: "+err.Error(), err))
		return false
	}
	return true
}

// analyst reads the credential for this request. A missing key ends the
// request before any service is built.
func (h *Handler) analyst(c *gin.Context, capability sonar.Capability) (Analyst, bool) {
	apiKey := ""
	if h.credentials != nil {
		apiKey = h.credentials()
	}
	if apiKey == "" {
		h.fail(c, capability, resilience.NewConfigurationError(config.ErrAPIKeyNotConfigured.Error(), config.ErrAPIKeyNotConfigured))
		return nil, false
	}
	return h.newAnalyst(apiKey), true
}

// fail writes the error body. Every failure maps to 500; errors without a
// code are reported as internal errors.
func (h *Handler) fail(c *gin.Context, capability sonar.Capability, err error) {
	var serviceErr *resilience.ServiceError
	if !resilience.AsServiceError(err, &serviceErr) {
		serviceErr = resilience.NewInternalError(err.Error(), err)
	}

	fields := []zap.Field{
		zap.String("capability", string(capability)),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("error_code", string(serviceErr.Code)),
		zap.Error(err),
	}

	if resilience.IsCode(serviceErr, resilience.ErrorCodeConfiguration) {
		h.logger.Warn("Research request rejected", fields...)
	} else {
		h.logger.Error("Research request failed", fields...)
	}

	c.JSON(http.StatusInternalServerError, resilience.ErrorResponse{Error: err.Error()})
}
