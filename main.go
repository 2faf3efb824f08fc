package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"volume-core/internal/api"
	"volume-core/internal/engine"
	"volume-core/internal/events"
	"volume-core/internal/monitor"
	"volume-core/internal/notify"
	"volume-core/internal/settings"
	"volume-core/internal/trader"
	"volume-core/pkg/config"
	"volume-core/pkg/db"
	"volume-core/pkg/exchanges/mexc"
)

func main() {
	log.Println("🚀 starting volume engine")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}
	queries := database.Queries()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	metrics := monitor.NewSystemMetrics()

	client := mexc.New(mexc.Config{
		APIKey:     cfg.MEXCAPIKey,
		APISecret:  cfg.MEXCAPISecret,
		BaseURL:    cfg.MEXCBaseURL,
		RecvWindow: int64(cfg.RecvWindowMs),
		MaxRetries: cfg.MaxRetries,
		RetryBase:  cfg.RetryBase,
	})
	client.StartTimeSync(ctx)

	store := settings.NewStore(queries)
	if err := store.BootstrapFile(ctx, cfg.SettingsFile); err != nil {
		log.Printf("⚠️ settings bootstrap: %v", err)
	}
	if err := store.Load(ctx); err != nil {
		log.Fatalf("load settings: %v", err)
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.TelegramToken != "" && len(cfg.TelegramChatIDs) > 0 {
		notifier = notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatIDs)
		log.Printf("telegram notifications enabled for %d chats", len(cfg.TelegramChatIDs))
	}

	symbol := cfg.PairSymbol()
	tr := trader.New(client, queries, notifier, bus, symbol, cfg.BaseAsset, cfg.QuoteAsset)
	tr.SettleDelay = cfg.SettleDelay

	ctrl := engine.New(tr, client, store, queries, bus, notifier, metrics, symbol)

	server := api.NewServer(bus, queries, ctrl, metrics, cfg.JWTSecret)
	go func() {
		log.Printf("🌐 control API listening on :%s", cfg.Port)
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Println("🛑 shutdown signal received")
	if err := ctrl.Stop(context.Background()); err != nil && !errors.Is(err, engine.ErrNotRunning) {
		log.Printf("⚠️ stop engine: %v", err)
	}
	log.Println("bye")
}
