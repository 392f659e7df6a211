package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dashboard_builder/config"
	"dashboard_builder/facts"
	"dashboard_builder/generator"
	"dashboard_builder/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.ServerAddr = serveAddr
		}
		srv, err := buildServer(cfg)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, cfg.ServerAddr, srv.Routes())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "http listen address (overrides config server_addr and PORT)")
}

func buildServer(cfg config.Config) (*server.Server, error) {
	f, err := facts.Load(cfg.FactsPath)
	if err != nil {
		return nil, err
	}
	llm, err := generator.NewLLM(&generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	orch, err := generator.NewOrchestrator(llm, f.Text(),
		generator.WithLogger(logger.Named("generator")),
		generator.WithRejectBlankPrompt(cfg.RejectBlankPrompt),
		generator.WithSanitizedMarkup(cfg.SanitizeHTML))
	if err != nil {
		return nil, err
	}
	logger.Info("server configured",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.Bool("sanitize_html", cfg.SanitizeHTML),
		zap.Int("memory_max_entries", cfg.MemoryMaxEntries))
	return server.New(orch, f, cfg, logger.Named("server"))
}

func runServer(ctx context.Context, addr string, h http.Handler) error {
	hs := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server running", zap.String("addr", addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
