package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"bytenews/internal/config"
	"bytenews/internal/source"
	"bytenews/internal/stubapi"
)

func main() {
	rss := flag.Bool("rss", false, "serve content from live RSS feeds instead of the built-in catalog")
	flag.Parse()

	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	opts := []stubapi.Option{
		stubapi.WithEndpoints(cfg.Endpoints),
		stubapi.WithLogger(logger),
	}
	if *rss {
		opts = append(opts, stubapi.WithContent(source.Route{
			Topics: source.NewRSS(logger),
			Search: source.NewGoogleNews(logger),
		}))
	}

	s := stubapi.New(opts...)
	slog.Info("stub news service starting", "addr", cfg.StubAddr, "rss", *rss)
	if err := http.ListenAndServe(cfg.StubAddr, s.Handler()); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
