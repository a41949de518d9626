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

import "strings"

// FallbackResponse is returned when the provider answered without usable content
const FallbackResponse = "Unable to generate response. Please try again."

// Completion is the text of the first choice, tagged with whether it was present
type Completion struct {
	Text    string
	Present bool
}

// FirstCompletion reads choices[0].message.content. Present is false when
// any link of that chain is missing or the content is blank.
func FirstCompletion(resp *APIResponse) Completion {
	if resp == nil || len(resp.Choices) == 0 {
		return Completion{}
	}

	msg := resp.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return Completion{}
	}

	text := strings.TrimSpace(*msg.Content)
	if text == "" {
		return Completion{}
	}

	return Completion{Text: text, Present: true}
}

// NormalizeResponse returns the trimmed completion text or FallbackResponse
func NormalizeResponse(resp *APIResponse) string {
	completion := FirstCompletion(resp)
	if !completion.Present {
		return FallbackResponse
	}
	return completion.Text
}
