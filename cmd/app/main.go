package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinfeed_go/internal/app"
	"coinfeed_go/internal/hub"
	"coinfeed_go/internal/infra"
	"coinfeed_go/internal/infra/coingecko"
	"coinfeed_go/internal/server"
	"coinfeed_go/internal/service"
)

func main() {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Shared infrastructure
	metrics := infra.NewMetrics()
	gecko := coingecko.NewClient(cfg)

	// 4. Connection hub (single-owner loop for all registry state)
	connHub := hub.NewHub(time.Duration(cfg.Heartbeat.TimeoutSec)*time.Second, metrics)
	go connHub.Run(ctx)

	// 5. Market-data publisher
	priceCache := service.NewPriceCache(time.Duration(cfg.Publish.CacheDurationSec) * time.Second)
	publisher := service.NewPublisher(
		bootstrap.Storage, gecko, connHub, priceCache,
		cfg.API.CoinGecko.VsCurrency,
		time.Duration(cfg.Publish.IntervalSec)*time.Second,
		metrics,
	)
	publisher.Start(ctx)
	defer publisher.Stop()
	slog.InfoContext(ctx, "Publisher started", slog.Int("interval_sec", cfg.Publish.IntervalSec))

	// 6. Order intake
	refCache := service.NewReferenceCache(gecko, cfg.API.CoinGecko.VsCurrency,
		time.Duration(cfg.Intake.ReferenceTTLSec)*time.Second)
	intake := service.NewIntake(bootstrap.Storage, refCache, publisher,
		cfg.Intake.PriceTolerance, cfg.Intake.TotalTolerance, metrics)

	// 7. Background icon sync for coins already on the book
	go bootstrap.SyncIcons(ctx, gecko)

	// 8. HTTP + WebSocket surface
	srv := server.New(cfg, connHub, intake, refCache, bootstrap.Icons, metrics)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Routes(),
	}

	go func() {
		slog.Info("Server listening", slog.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", slog.Any("error", err))
			stop()
		}
	}()

	slog.InfoContext(ctx, "CoinFeed fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", slog.Any("error", err))
	}
}
