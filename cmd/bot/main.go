package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"

	"go-jobdesk-bot/internal/ai"
	"go-jobdesk-bot/internal/config"
	"go-jobdesk-bot/internal/engine"
	"go-jobdesk-bot/internal/harvest"
	"go-jobdesk-bot/internal/logger"
	"go-jobdesk-bot/internal/publish"
	"go-jobdesk-bot/internal/schedule"
	"go-jobdesk-bot/internal/session"
	"go-jobdesk-bot/internal/store"
	"go-jobdesk-bot/internal/telegram"
)

func main() {
	cfg := config.Load()

	if err := logger.Initialize(os.Getenv("LOG_JSON") == "true"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := store.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Logger.Fatalw("database connection failed", "error", err)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		logger.Logger.Fatalw("migrations failed", "error", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Logger.Fatalw("telegram bot init failed", "error", err)
	}

	clock := clockwork.NewRealClock()
	extractor := ai.NewGroqClient(cfg.GroqAPIKey)
	harvester := harvest.NewHTTPHarvester(cfg.HarvestTimeout)
	publisher := publish.NewTelegramPublisher(api, cfg.BroadcastChannelID, cfg.SiteRootURL)
	scheduler := schedule.NewScheduler(repo, clock, cfg.BatchStride)
	sessions := session.NewMemoryStore()

	eng := engine.New(repo, sessions, extractor, harvester, scheduler, publisher, cfg.SiteRootURL)

	worker := schedule.NewWorker(repo, extractor, harvester, publisher, clock, cfg.WorkerPollInterval)
	go worker.Run(ctx)

	if cfg.BroadcastChannelID == 0 {
		logger.Logger.Warn("BROADCAST_CHANNEL_ID not set, publishing disabled")
	}

	listener := telegram.NewListener(api, eng, cfg.IsOperator)
	listener.Run(ctx)
}
