package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/blendin/internal/api"
	"github.com/mcoot/blendin/internal/factory"
)

func main() {
	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func run(ctx context.Context, cfg *Config) error {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.level(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := factory.New(ctx, cfg.factoryConfig(logger))
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	logger.Info("topics loaded", slog.Int("count", app.TopicService.Count()))

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.bind
	serverConfig.Port = cfg.port
	server := api.NewServer(app.Router(cfg.publicURL), serverConfig, logger)

	// Closing every lobby ends the SSE streams Shutdown would otherwise wait on
	// and tells WebSocket players, whose hijacked conns the server no longer tracks
	server.RegisterOnShutdown(func() {
		app.Registry.Close(context.WithoutCancel(ctx))
	})

	ln, err := net.Listen("tcp", server.Addr())
	if err != nil {
		_ = app.Close(ctx)
		return fmt.Errorf("listen on %s: %w", server.Addr(), err)
	}

	go app.Registry.Run(ctx)

	runErr := server.Run(ctx, ln)
	if ctx.Err() != nil {
		logger.Info("shutdown signal received")
	}

	if err := app.Close(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("failed to close storage", slog.String("error", err.Error()))
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("server stopped")
	return nil
}
