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
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/scrollvest/internal/sonar"
)

const chatPrompt = "> "

// chatter is the part of the research service the chat loop needs
type chatter interface {
	ChatWithAssistant(ctx context.Context, userMessage string, history []sonar.Message) (string, error)
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the real-estate investment assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, "stderr")
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			svc, err := a.cliService()
			if err != nil {
				return err
			}

			session := &chatSession{
				assistant:    svc,
				historyLimit: a.cfg.Chat.HistoryLimit,
				logger:       a.logger,
			}
			return session.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// chatSession keeps the conversation for one interactive run
type chatSession struct {
	assistant    chatter
	historyLimit int
	logger       *zap.Logger
	history      []sonar.Message
}

// run reads one message per line until EOF, "exit" or "quit"
func (s *chatSession) run(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Ask about markets, properties or strategy. Type \"exit\" to quit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, chatPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		message := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(message) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		fmt.Fprintln(out, s.ask(ctx, message))
	}
}

// ask sends one message with the recent history. Failed turns are shown but
// not remembered.
func (s *chatSession) ask(ctx context.Context, message string) string {
	reply, err := s.assistant.ChatWithAssistant(ctx, message, sonar.TrimHistory(s.history, s.historyLimit))
	if err != nil {
		s.logger.Warn("Chat turn failed", zap.Error(err))
		return fmt.Sprintf("Sorry, I couldn't reach the research service: %s", err)
	}

	s.history = append(s.history,
		sonar.Message{Role: sonar.RoleUser, Content: message},
		sonar.Message{Role: sonar.RoleAssistant, Content: reply},
	)
	return reply
}
