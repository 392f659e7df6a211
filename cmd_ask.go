package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dashboard_builder/stream"
)

var (
	serverURL  string
	outPath    string
	noSanitize bool
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>...",
	Short: "Generate one module per prompt against a running server and write the dashboard page",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStream(cmd.Context())
		if err != nil {
			return err
		}
		for _, prompt := range args {
			s.Submit(cmd.Context(), prompt)
		}
		return writePage(s)
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Prompt interactively; the dashboard page is rewritten after every module",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStream(cmd.Context())
		if err != nil {
			return err
		}
		for {
			var prompt string
			err := survey.AskOne(&survey.Input{
				Message: "Module prompt (empty to quit):",
			}, &prompt)
			if errors.Is(err, terminal.InterruptErr) {
				return nil
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(prompt) == "" {
				return nil
			}
			before := len(s.Modules())
			s.Submit(cmd.Context(), prompt)
			if len(s.Modules()) > before {
				if err := writePage(s); err != nil {
					return err
				}
			}
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{askCmd, replCmd} {
		c.Flags().StringVar(&serverURL, "server", "http://localhost:5173", "dashboard server base URL")
		c.Flags().StringVarP(&outPath, "out", "o", "dashboard.html", "where to write the rendered page")
		c.Flags().BoolVar(&noSanitize, "no-sanitize", false, "insert module markup without the allow-list")
	}
}

func newStream(ctx context.Context) (*stream.Stream, error) {
	client, err := stream.NewHTTPClient(serverURL, nil)
	if err != nil {
		return nil, err
	}
	sessionID, err := client.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger.Debug("session created", zap.String("session_id", sessionID))
	return stream.New(client,
		stream.WithSessionID(sessionID),
		stream.WithSanitize(!noSanitize),
		stream.WithLogger(logger.Named("stream")),
		stream.WithNotifier(stream.NotifierFunc(func(msg string) {
			fmt.Fprintln(os.Stderr, msg)
		})))
}

func writePage(s *stream.Stream) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := s.Render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("dashboard written", zap.String("path", outPath), zap.Int("modules", len(s.Modules())))
	return nil
}
