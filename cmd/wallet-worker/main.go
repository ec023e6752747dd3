package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"adzopay/internal/adapters/notifier"
	"adzopay/internal/adapters/repo"
	"adzopay/internal/domain"
	"adzopay/internal/infra/cache"
	"adzopay/internal/infra/config"
	"adzopay/internal/infra/db"
	applog "adzopay/internal/infra/log"
	"adzopay/internal/infra/metrics"
	"adzopay/internal/infra/queue"
	"adzopay/internal/usecase/wallet"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)

	if cfg.Queues.Mode == "" || cfg.Queues.Mode == queue.ModeDirect {
		logger.Fatal().Msg("wallet-worker: в режиме direct начисления применяет api (CREDIT_QUEUE_MODE)")
	}

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("wallet-worker: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("wallet-worker: нет подключения к Redis")
		}
		defer redisClient.Close()
	}

	creditQueue, closeQueue, err := queue.Open(queue.Options{
		Mode:      cfg.Queues.Mode,
		Key:       cfg.Queues.Credit,
		Redis:     redisClient,
		RabbitURL: cfg.RabbitURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("wallet-worker: очередь начислений недоступна")
	}
	defer func() { _ = closeQueue() }()

	goal, err := domain.ParseMoney(cfg.Wallet.Goal, cfg.Wallet.Currency)
	if err != nil {
		logger.Fatal().Err(err).Msg("wallet-worker: неверная цель кошелька")
	}
	service := wallet.NewService(repoAdapter, repoAdapter, goalNotifier(cfg, logger), goal, applog.Component(logger, "wallet"))

	logger.Info().Str("mode", cfg.Queues.Mode).Msg("wallet-worker: запуск обработки очереди")
	wallet.NewWorker(creditQueue, service, applog.Component(logger, "wallet_worker")).Run(ctx)
	logger.Info().Msg("wallet-worker: остановлен")
}

func goalNotifier(cfg config.AppConfig, logger zerolog.Logger) domain.Notifier {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return nil
	}
	bot, err := notifier.NewBot(cfg.Telegram.Token)
	if err != nil {
		logger.Error().Err(err).Msg("wallet-worker: уведомления в Telegram отключены")
		return nil
	}
	return notifier.NewTelegram(bot, cfg.Telegram.ChatID, applog.Component(logger, "notifier"))
}
