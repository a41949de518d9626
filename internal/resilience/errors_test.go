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

package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceError(t *testing.T) {
	internal := errors.New("internal error")
	serviceErr := NewServiceError("user message", ErrorCodeInternalError, http.StatusInternalServerError, internal)

	assert.Equal(t, "user message", serviceErr.Error())
	assert.Equal(t, internal, serviceErr.Unwrap())
	assert.Equal(t, ErrorCodeInternalError, serviceErr.Code)
	assert.Equal(t, http.StatusInternalServerError, serviceErr.StatusCode)
	assert.False(t, serviceErr.OccurredAt.IsZero())
}

func TestServiceErrorConvenience(t *testing.T) {
	internal := errors.New("internal")

	tests := []struct {
		name         string
		err          *ServiceError
		expectCode   ErrorCode
		expectStatus int
	}{
		{
			name:         "bad request",
			err:          NewBadRequestError("bad request", internal),
			expectCode:   ErrorCodeBadRequest,
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "internal error",
			err:          NewInternalError("internal error", internal),
			expectCode:   ErrorCodeInternalError,
			expectStatus: http.StatusInternalServerError,
		},
		{
			name:         "configuration",
			err:          NewConfigurationError("API key not configured", internal),
			expectCode:   ErrorCodeConfiguration,
			expectStatus: http.StatusInternalServerError,
		},
		{
			name:         "service unavailable",
			err:          NewServiceUnavailableError("service unavailable", internal),
			expectCode:   ErrorCodeServiceUnavailable,
			expectStatus: http.StatusServiceUnavailable,
		},
		{
			name:         "too many requests",
			err:          NewTooManyRequestsError("slow down", internal),
			expectCode:   ErrorCodeTooManyRequests,
			expectStatus: http.StatusTooManyRequests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectCode, tt.err.Code)
			assert.Equal(t, tt.expectStatus, tt.err.StatusCode)
			assert.Equal(t, internal, tt.err.Unwrap())
		})
	}
}

func TestServiceErrorToErrorResponse(t *testing.T) {
	serviceErr := NewServiceUnavailableError("Market research service unavailable: boom", nil)

	response := serviceErr.ToErrorResponse()

	assert.Equal(t, "Market research service unavailable: boom", response.Error)
}

func TestAsServiceError(t *testing.T) {
	serviceErr := NewServiceUnavailableError("down", nil)

	t.Run("direct", func(t *testing.T) {
		var target *ServiceError
		require.True(t, AsServiceError(serviceErr, &target))
		assert.Same(t, serviceErr, target)
	})

	t.Run("wrapped", func(t *testing.T) {
		var target *ServiceError
		wrapped := fmt.Errorf("calling provider: %w", serviceErr)
		require.True(t, AsServiceError(wrapped, &target))
		assert.Equal(t, ErrorCodeServiceUnavailable, target.Code)
	})

	t.Run("plain error", func(t *testing.T) {
		var target *ServiceError
		assert.False(t, AsServiceError(errors.New("plain"), &target))
		assert.Nil(t, target)
	})

	t.Run("nil", func(t *testing.T) {
		var target *ServiceError
		assert.False(t, AsServiceError(nil, &target))
	})
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewConfigurationError("missing key", nil))

	assert.True(t, IsCode(err, ErrorCodeConfiguration))
	assert.False(t, IsCode(err, ErrorCodeServiceUnavailable))
	assert.False(t, IsCode(errors.New("other"), ErrorCodeConfiguration))
}
