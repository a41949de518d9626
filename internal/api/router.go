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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/your-org/scrollvest/internal/health"
)

// RouterConfig holds what NewRouter wires together
type RouterConfig struct {
	Handler *Handler
	Health  *health.Manager
	Metrics http.Handler
	Logger  *zap.Logger
	// RateLimit is requests per second for the /api routes; 0 disables limiting
	RateLimit float64
	RateBurst int
}

// NewRouter builds the gin engine serving the API, health and metrics routes
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger(logger))

	if cfg.Health != nil {
		router.GET("/health", cfg.Health.Handler())
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	apiRoutes := router.Group("")
	if cfg.RateLimit > 0 {
		apiRoutes.Use(RateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)))
	}
	if cfg.Handler != nil {
		cfg.Handler.RegisterRoutes(apiRoutes)
	}

	return router
}
