package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"coinfeed_go/internal/infra"
	"coinfeed_go/internal/infra/coingecko"
	"coinfeed_go/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Icons   *infra.IconCache
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, icons).
func (b *Bootstrap) Initialize() error {
	slog.Info("Bootstrapping CoinFeed...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("Database initialized")

	// 4. Initialize icon cache
	icons, err := infra.NewIconCache("")
	if err != nil {
		return err
	}
	b.Icons = icons
	slog.Info("Icon cache ready")

	return nil
}

// SyncIcons downloads icons for every coin referenced by stored orders.
// Runs in the background; failures are logged and retried with backoff.
func (b *Bootstrap) SyncIcons(ctx context.Context, source *coingecko.Client) {
	ids, err := b.Storage.CoinIDs(ctx)
	if err != nil {
		slog.Warn("Failed to list coins for icon sync", slog.Any("error", err))
		return
	}
	if len(ids) == 0 {
		return
	}

	slog.Info("Starting icon synchronization", slog.Int("coins", len(ids)))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for _, id := range ids {
		wg.Add(1)
		go func(coinID string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			b.syncIcon(ctx, source, coinID)
		}(id)
	}

	wg.Wait()
	slog.Info("Icon synchronization completed")
}

func (b *Bootstrap) syncIcon(ctx context.Context, source *coingecko.Client, coinID string) {
	vs := b.Config.API.CoinGecko.VsCurrency

	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(infra.CalculateBackoff(attempt - 1)):
			}
		}

		detail, err := source.Coin(ctx, coinID, vs)
		if err != nil {
			slog.Warn("Failed to fetch coin detail for icon", slog.String("coin", coinID), slog.Any("error", err))
			continue
		}

		if _, err := b.Icons.Download(ctx, coinID, detail.IconURL); err != nil {
			slog.Warn("Failed to download icon", slog.String("coin", coinID), slog.Any("error", err))
			continue
		}
		return
	}
}
