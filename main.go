package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/km-arc/go-qudo/components"
	"github.com/km-arc/go-qudo/framework/app"
	"github.com/km-arc/go-qudo/framework/container"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	opts := []app.Option{
		app.WithLogger(logger),
		app.WithCatalog(components.Catalog),
	}
	if _, err := os.Stat("components.yml"); err == nil {
		opts = append(opts, app.WithConfigFile("components.yml"))
	}

	application, err := app.New(opts...)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The client requires QUDO_RESOURCE, or resource: in components.yml.
	if err := application.Boot(ctx); err != nil {
		logger.Error("boot failed", "error", err)
		os.Exit(1)
	}

	client, err := container.ResolveAs[*components.Client](ctx, application.Container(), "client")
	if err != nil {
		logger.Error("client unavailable", "error", err)
		os.Exit(1)
	}
	logger.Info("client ready", "resource", client.Resource())

	if err := application.Run(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
