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
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/your-org/scrollvest/internal/sonar"
)

func newResearchCmd(opts *rootOptions) *cobra.Command {
	var (
		propertyType string
		depth        string
		comparables  bool
	)

	cmd := &cobra.Command{
		Use:   "research LOCATION",
		Short: "Run market research for a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapability(cmd, opts, func(ctx context.Context, svc *sonar.Service) (string, error) {
				return svc.ConductMarketResearch(ctx, args[0], sonar.MarketResearchOptions{
					Location:           args[0],
					PropertyType:       sonar.PropertyType(propertyType),
					SearchDepth:        sonar.SearchDepth(depth),
					IncludeComparables: comparables,
				})
			})
		},
	}

	cmd.Flags().StringVarP(&propertyType, "property-type", "t", "", "Property type focus (residential, commercial, industrial, mixed)")
	cmd.Flags().StringVarP(&depth, "depth", "d", string(sonar.SearchDepthDetailed), "Search depth (quick, detailed, comprehensive)")
	cmd.Flags().BoolVar(&comparables, "comparables", false, "Include comparable markets and benchmarking")

	return cmd
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var req sonar.PropertyAnalysisRequest

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a single property as an investment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCapability(cmd, opts, func(ctx context.Context, svc *sonar.Service) (string, error) {
				return svc.AnalyzeProperty(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&req.PropertyID, "id", "", "Property identifier")
	cmd.Flags().StringVarP(&req.Location, "location", "l", "", "Property location")
	cmd.Flags().StringVarP(&req.PropertyType, "type", "t", "", "Property type (residential, commercial, industrial, mixed)")
	cmd.Flags().Float64VarP(&req.Price, "price", "p", 0, "Listed price in dollars")
	cmd.Flags().StringSliceVarP(&req.Features, "feature", "f", nil, "Property feature (repeatable)")
	_ = cmd.MarkFlagRequired("location")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func newCompareCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare LOCATION...",
		Short: "Compare investment potential across markets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapability(cmd, opts, func(ctx context.Context, svc *sonar.Service) (string, error) {
				return svc.CompareMarkets(ctx, args)
			})
		},
	}
}

func newPortfolioCmd(opts *rootOptions) *cobra.Command {
	var (
		rawHoldings []string
		goals       string
	)

	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Get insights for a property portfolio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			holdings, err := parseHoldings(rawHoldings)
			if err != nil {
				return err
			}
			return runCapability(cmd, opts, func(ctx context.Context, svc *sonar.Service) (string, error) {
				return svc.GetPortfolioInsights(ctx, holdings, goals)
			})
		},
	}

	cmd.Flags().StringArrayVar(&rawHoldings, "holding", nil, "Holding as LOCATION:TYPE:VALUE (repeatable)")
	cmd.Flags().StringVarP(&goals, "goals", "g", "", "Investment goals")
	_ = cmd.MarkFlagRequired("holding")

	return cmd
}

// runCapability loads configuration, builds a service and prints the result
func runCapability(cmd *cobra.Command, opts *rootOptions, call func(context.Context, *sonar.Service) (string, error)) error {
	a, err := loadApp(opts, "stderr")
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	svc, err := a.cliService()
	if err != nil {
		return err
	}

	result, err := call(cmd.Context(), svc)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), result)
	return err
}

// parseHoldings reads LOCATION:TYPE:VALUE entries. The location may itself
// contain colons, so the type and value are taken from the right.
func parseHoldings(raw []string) ([]sonar.Holding, error) {
	holdings := make([]sonar.Holding, 0, len(raw))
	for _, entry := range raw {
		valueSep := strings.LastIndex(entry, ":")
		if valueSep <= 0 {
			return nil, fmt.Errorf("invalid holding %q: expected LOCATION:TYPE:VALUE", entry)
		}
		typeSep := strings.LastIndex(entry[:valueSep], ":")
		if typeSep <= 0 {
			return nil, fmt.Errorf("invalid holding %q: expected LOCATION:TYPE:VALUE", entry)
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(entry[valueSep+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid holding value in %q: %w", entry, err)
		}

		holdings = append(holdings, sonar.Holding{
			Location:     strings.TrimSpace(entry[:typeSep]),
			PropertyType: strings.TrimSpace(entry[typeSep+1 : valueSep]),
			Value:        value,
		})
	}
	return holdings, nil
}
