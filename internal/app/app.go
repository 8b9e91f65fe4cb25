package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bytenews/internal/config"
)

// Run starts the interactive terminal client.
func Run() error {
	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		return err
	}
	log := cfg.NewLogger(os.Stderr)
	slog.SetDefault(log)

	svc, err := NewService(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewConsole(svc, os.Stdin, os.Stdout).Loop(ctx)
}
