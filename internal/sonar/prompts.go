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
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// MarketResearchPersona is the system prompt for market research and market comparison
const MarketResearchPersona = `You are a senior real estate market analyst with expertise in African and global property markets.
Your role is to provide accurate, data-driven market insights for real estate investors.

Focus on:
- Current market trends and pricing
- Investment opportunities and risks
- Rental yields and ROI projections
- Economic factors affecting property values
- Comparative market analysis
- Future market predictions

Always provide specific, actionable insights with supporting data when available.
Be concise but comprehensive in your analysis.`

// PropertyAnalysisPersona is the system prompt for property analysis and portfolio insights
const PropertyAnalysisPersona = `You are an expert property investment advisor specializing in real estate valuation and investment analysis.
Your role is to analyze individual properties and provide investment recommendations.

Analyze properties based on:
- Location desirability and growth potential
- Property condition and features
- Market comparables and pricing
- Rental potential and yields
- Investment risks and opportunities
- Exit strategy considerations

Provide clear investment ratings and recommendations with reasoning.`

// ChatAssistantPersona is the system prompt for the conversational assistant
const ChatAssistantPersona = `You are a knowledgeable real estate investment assistant helping users make informed property investment decisions.
You have expertise in global real estate markets, particularly in Africa (Ghana, Nigeria, Kenya, Egypt, South Africa).

Provide helpful, accurate information about:
- Property investment strategies
- Market conditions and trends
- Investment calculations (ROI, rental yields, etc.)
- Risk assessment
- Portfolio diversification
- Real estate financing options

Be conversational, helpful, and always prioritize the user's investment goals and risk tolerance.`

// ComparablesInstruction is appended to market research prompts when comparables are requested
const ComparablesInstruction = "- Comparable markets and benchmarking"

// DefaultPropertyTypeFocus is used when market research has no property type
const DefaultPropertyTypeFocus = "all types"

const marketResearchTemplate = `Conduct a comprehensive real estate market analysis for %s.

Property Type Focus: %s
Analysis Requirements:
- Current market conditions and pricing trends
- Average property values and rental rates
- Investment opportunities and hotspots
- Market growth projections
- Economic factors affecting the market
- Risk assessment for investors
%s
Provide actionable insights for real estate investors considering this market.`

const propertyAnalysisTemplate = `Analyze this property for investment potential:

Location: %s
Property Type: %s
Listed Price: %s
%s
Provide analysis on:
1. Price competitiveness vs market
2. Investment potential and expected ROI
3. Rental yield projections
4. Market appreciation potential
5. Risk factors and considerations
6. Investment recommendation (Buy/Hold/Pass)

Include specific reasoning for your recommendation.`

const marketComparisonTemplate = `Compare the real estate investment potential across these markets: %s.

For each market, analyze:
- Current property values and trends
- Rental yields and investment returns
- Market growth potential
- Economic stability and growth drivers
- Investment risks and opportunities
- Ease of property acquisition for foreign investors

Rank these markets for real estate investment attractiveness and explain your reasoning.`

const portfolioInsightsTemplate = `Analyze this real estate investment portfolio and provide strategic insights:

Current Portfolio: %s
Investment Goals: %s

Provide analysis on:
1. Portfolio diversification assessment
2. Geographic and property type balance
3. Risk exposure evaluation
4. Growth opportunities and gaps
5. Recommended next investments
6. Portfolio optimization strategies

Focus on actionable recommendations for portfolio improvement.`

// BuildMarketResearchPrompt creates the user prompt for market research
func BuildMarketResearchPrompt(location string, opts MarketResearchOptions) string {
	focus := string(opts.PropertyType)
	if focus == "" {
		focus = DefaultPropertyTypeFocus
	}

	comparables := ""
	if opts.IncludeComparables {
		comparables = ComparablesInstruction + "\n"
	}

	return fmt.Sprintf(marketResearchTemplate, location, focus, comparables)
}

// BuildPropertyAnalysisPrompt creates the user prompt for a single property
func BuildPropertyAnalysisPrompt(req PropertyAnalysisRequest) string {
	features := ""
	if len(req.Features) > 0 {
		features = "Features: " + strings.Join(req.Features, ", ") + "\n"
	}

	return fmt.Sprintf(propertyAnalysisTemplate, req.Location, req.PropertyType, FormatPrice(req.Price), features)
}

// BuildMarketComparisonPrompt creates the user prompt comparing several markets
func BuildMarketComparisonPrompt(locations []string) string {
	return fmt.Sprintf(marketComparisonTemplate, strings.Join(locations, ", "))
}

// BuildPortfolioInsightsPrompt creates the user prompt summarizing a portfolio
func BuildPortfolioInsightsPrompt(holdings []Holding, goals string) string {
	return fmt.Sprintf(portfolioInsightsTemplate, SummarizePortfolio(holdings), goals)
}

// SummarizePortfolio renders holdings as "location (type): $value", comma-joined
func SummarizePortfolio(holdings []Holding) string {
	parts := make([]string, 0, len(holdings))
	for _, h := range holdings {
		parts = append(parts, fmt.Sprintf("%s (%s): %s", h.Location, h.PropertyType, FormatPrice(h.Value)))
	}
	return strings.Join(parts, ", ")
}

// priceFractionDigits caps the fraction digits shown in a price
const priceFractionDigits = 3

// FormatPrice renders a dollar amount with thousands separators and at most
// three fraction digits, e.g. $150,000 or $1,234.568
func FormatPrice(amount float64) string {
	scale := math.Pow10(priceFractionDigits)
	return "$" + humanize.Commaf(math.Round(amount*scale)/scale)
}
