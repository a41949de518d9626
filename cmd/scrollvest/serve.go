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
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/scrollvest/internal/api"
	"github.com/your-org/scrollvest/internal/config"
	"github.com/your-org/scrollvest/internal/health"
	"github.com/your-org/scrollvest/internal/metrics"
)

const (
	shutdownTimeout    = 10 * time.Second
	healthCheckTimeout = 2 * time.Second
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the research HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			rt, err := loadApp(opts, "stdout")
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			return serve(rt, opts.configPath)
		},
	}
}

func serve(rt *app, configPath string) error {
	holder := config.NewHolder(rt.cfg)
	err := config.WatchConfig(config.LoadOptions{ConfigPath: configPath, ValidateRequired: true}, func(cfg *config.Config) {
		holder.Store(cfg)
		rt.logger.Info("Configuration reloaded", zap.String("sonar_model", cfg.Sonar.Model))
	}, func(err error) {
		rt.logger.Warn("Configuration reload rejected", zap.Error(err))
	})
	switch {
	case errors.Is(err, config.ErrNoConfigFile):
		rt.logger.Info("No configuration file found, using defaults and environment")
	case err != nil:
		return err
	}

	router, err := buildRouter(rt.logger, holder, prometheus.DefaultRegisterer, promhttp.Handler())
	if err != nil {
		return err
	}

	masked := rt.cfg.MaskSensitiveValues()
	rt.logger.Info("Starting research service",
		zap.String("port", rt.cfg.Server.Port),
		zap.String("sonar_base_url", masked.Sonar.BaseURL),
		zap.String("sonar_model", masked.Sonar.Model),
		zap.String("sonar_api_key", masked.Sonar.APIKey),
		zap.Int("sonar_timeout_seconds", masked.Sonar.Timeout),
	)

	server := &http.Server{
		Addr:              ":" + rt.cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-sigChan:
		rt.logger.Info("Received shutdown signal")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	rt.logger.Info("Research service stopped")
	return nil
}

// buildRouter wires the endpoint handlers, health report and metrics.
// Every request reads the credential and the provider settings from holder.
func buildRouter(logger *zap.Logger, holder *config.Holder, reg prometheus.Registerer, metricsHandler http.Handler) (*gin.Engine, error) {
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	cfg := holder.Load()
	gin.SetMode(cfg.Server.Mode)

	factory := func(apiKey string) api.Analyst {
		current := &app{cfg: holder.Load(), logger: logger}
		return current.newService(apiKey, recorder)
	}

	healthManager := health.NewManager(serviceName, serviceVersion, logger)
	healthManager.SetTimeout(healthCheckTimeout)
	healthManager.AddChecker("sonar_credentials", health.CredentialChecker(holder.APIKey))

	return api.NewRouter(api.RouterConfig{
		Handler:   api.NewHandler(holder.APIKey, factory, logger),
		Health:    healthManager,
		Metrics:   metricsHandler,
		Logger:    logger,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	}), nil
}
