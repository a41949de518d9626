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

// Command scrollvest serves the real-estate research endpoints and offers
// the same capabilities from the command line.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/scrollvest/internal/config"
	"github.com/your-org/scrollvest/internal/metrics"
	"github.com/your-org/scrollvest/internal/sonar"
)

const (
	serviceName    = "scrollvest"
	serviceVersion = "1.0.0"
)

// rootOptions holds the flags shared by every subcommand
type rootOptions struct {
	configPath string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "AI market research for real-estate investors",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newResearchCmd(opts),
		newAnalyzeCmd(opts),
		newCompareCmd(opts),
		newPortfolioCmd(opts),
		newChatCmd(opts),
	)

	return rootCmd
}

// app is what a subcommand needs after configuration is loaded
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadApp(opts *rootOptions, console string) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initializeLogger(cfg.Logging, console)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &app{cfg: cfg, logger: logger}, nil
}

// newService builds a research service from the loaded configuration
func (a *app) newService(apiKey string, recorder *metrics.Recorder) *sonar.Service {
	return sonar.NewService(apiKey,
		sonar.WithBaseURL(a.cfg.Sonar.BaseURL),
		sonar.WithModel(a.cfg.Sonar.Model),
		sonar.WithTimeout(a.cfg.Sonar.RequestTimeout()),
		sonar.WithLogger(a.logger),
		sonar.WithRecorder(recorder),
	)
}

// cliService is used by the one-shot commands, which fail fast without a key
func (a *app) cliService() (*sonar.Service, error) {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return a.newService(strings.TrimSpace(a.cfg.Sonar.APIKey), nil), nil
}
