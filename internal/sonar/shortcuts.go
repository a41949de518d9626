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

import "context"

// MarketInsights runs market research with a one-off service
func MarketInsights(ctx context.Context, apiKey, location string, opts MarketResearchOptions, svcOpts ...Option) (string, error) {
	return NewService(apiKey, svcOpts...).ConductMarketResearch(ctx, location, opts)
}

// AnalyzePropertyInvestment runs a property analysis with a one-off service
func AnalyzePropertyInvestment(ctx context.Context, apiKey string, req PropertyAnalysisRequest, svcOpts ...Option) (string, error) {
	return NewService(apiKey, svcOpts...).AnalyzeProperty(ctx, req)
}

// ChatWithRealEstateAI sends one chat turn with a one-off service
func ChatWithRealEstateAI(ctx context.Context, apiKey, message string, history []Message, svcOpts ...Option) (string, error) {
	return NewService(apiKey, svcOpts...).ChatWithAssistant(ctx, message, history)
}
