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
	"github.com/sashabaranov/go-openai"
)

// Conversation roles accepted by the provider
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is one turn of a conversation. Order within a slice is the
// chronological turn order and is sent to the provider verbatim.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PropertyType narrows market research to one asset class
type PropertyType string

// Property types understood by the research prompts
const (
	PropertyTypeResidential PropertyType = "residential"
	PropertyTypeCommercial  PropertyType = "commercial"
	PropertyTypeIndustrial  PropertyType = "industrial"
	PropertyTypeMixed       PropertyType = "mixed"
)

// SearchDepth is the caller-facing knob for how much live search to run
type SearchDepth string

// Search depths accepted by ConductMarketResearch
const (
	SearchDepthQuick         SearchDepth = "quick"
	SearchDepthDetailed      SearchDepth = "detailed"
	SearchDepthComprehensive SearchDepth = "comprehensive"
)

// SearchContextSize is the provider-side search budget per request
type SearchContextSize string

// Search context sizes accepted by the provider
const (
	SearchContextLow    SearchContextSize = "low"
	SearchContextMedium SearchContextSize = "medium"
	SearchContextHigh   SearchContextSize = "high"
)

var searchDepthContext = map[SearchDepth]SearchContextSize{
	SearchDepthQuick:         SearchContextLow,
	SearchDepthDetailed:      SearchContextMedium,
	SearchDepthComprehensive: SearchContextHigh,
}

// ContextSize maps a search depth to the provider search context size.
// Empty and unknown depths map to medium.
func (d SearchDepth) ContextSize() SearchContextSize {
	if size, ok := searchDepthContext[d]; ok {
		return size
	}
	return SearchContextMedium
}

// MarketResearchOptions tunes a single market research call
type MarketResearchOptions struct {
	Location           string       `json:"location,omitempty"`
	PropertyType       PropertyType `json:"propertyType,omitempty"`
	SearchDepth        SearchDepth  `json:"searchDepth,omitempty"`
	IncludeComparables bool         `json:"includeComparables,omitempty"`
}

// PropertyAnalysisRequest describes the listing to analyze
type PropertyAnalysisRequest struct {
	PropertyID   string   `json:"propertyId"`
	Location     string   `json:"location"`
	PropertyType string   `json:"propertyType"`
	Price        float64  `json:"price"`
	Features     []string `json:"features,omitempty"`
}

// Holding is one position of a portfolio submitted for insights
type Holding struct {
	Location     string  `json:"location"`
	PropertyType string  `json:"propertyType"`
	Value        float64 `json:"value"`
}

// Capability names one of the research operations
type Capability string

// Research capabilities
const (
	CapabilityMarketResearch    Capability = "market_research"
	CapabilityPropertyAnalysis  Capability = "property_analysis"
	CapabilityChat              Capability = "chat"
	CapabilityMarketComparison  Capability = "market_comparison"
	CapabilityPortfolioInsights Capability = "portfolio_insights"
)

type webSearchOptions struct {
	SearchContextSize SearchContextSize `json:"search_context_size"`
}

// completionRequest is the body posted to /chat/completions
type completionRequest struct {
	Model            string           `json:"model"`
	Messages         []Message        `json:"messages"`
	WebSearchOptions webSearchOptions `json:"web_search_options"`
}

// APIResponse is the provider envelope. Every field is optional; only the
// first choice's message content is read.
type APIResponse struct {
	ID        string        `json:"id,omitempty"`
	Model     string        `json:"model,omitempty"`
	Choices   []Choice      `json:"choices,omitempty"`
	Citations []string      `json:"citations,omitempty"`
	Usage     *openai.Usage `json:"usage,omitempty"`
}

// Choice is one completion candidate
type Choice struct {
	Message *ChoiceMessage `json:"message,omitempty"`
}

// ChoiceMessage holds the generated text of a choice
type ChoiceMessage struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}
