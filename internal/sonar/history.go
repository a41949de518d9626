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

import "fmt"

// DefaultHistoryLimit is how many prior turns chat clients keep
const DefaultHistoryLimit = 10

// ValidateHistory rejects prior turns that would break the
// system-first conversation layout: only user and assistant turns may be replayed.
func ValidateHistory(history []Message) error {
	for i, m := range history {
		switch m.Role {
		case RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: history[%d] has role %q, want %q or %q",
				ErrInvalidRequest, i, m.Role, RoleUser, RoleAssistant)
		}
	}
	return nil
}

// TrimHistory keeps the most recent limit turns. The returned slice does not
// alias history.
func TrimHistory(history []Message, limit int) []Message {
	if limit <= 0 {
		return nil
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]Message, len(history))
	copy(out, history)
	return out
}
