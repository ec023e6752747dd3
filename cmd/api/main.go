package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"adzopay/internal/adapters/catalog"
	"adzopay/internal/adapters/identity"
	"adzopay/internal/adapters/media"
	"adzopay/internal/adapters/notifier"
	"adzopay/internal/adapters/repo"
	"adzopay/internal/domain"
	"adzopay/internal/infra/cache"
	"adzopay/internal/infra/config"
	"adzopay/internal/infra/db"
	httpinfra "adzopay/internal/infra/http"
	applog "adzopay/internal/infra/log"
	"adzopay/internal/infra/metrics"
	"adzopay/internal/infra/queue"
	"adzopay/internal/usecase/auth"
	"adzopay/internal/usecase/viewing"
	"adzopay/internal/usecase/wallet"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("api: миграции не применены")
		}
	}
	repoAdapter := repo.NewPostgres(pool)

	var (
		redisClient   *redis.Client
		identityCache domain.Cache = cache.NewMemory()
	)
	if cfg.RedisAddr != "" {
		redisClient, err = cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: нет подключения к Redis")
		}
		defer redisClient.Close()
		identityCache = cache.NewRedis(redisClient, "adzopay:")
	}

	identityClient, err := identity.New(cfg.Auth.URL, cfg.Auth.APIKey, identity.WithTimeout(cfg.Auth.Timeout))
	if err != nil {
		logger.Fatal().Err(err).Msg("api: неверный адрес провайдера идентичности")
	}
	authHolder := auth.NewHolder(identityClient, identityCache, cfg.Auth.CacheTTL, applog.Component(logger, "auth"))

	goal, err := domain.ParseMoney(cfg.Wallet.Goal, cfg.Wallet.Currency)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: неверная цель кошелька")
	}
	walletService := wallet.NewService(repoAdapter, repoAdapter, goalNotifier(cfg, logger), goal, applog.Component(logger, "wallet"))

	creditQueue, closeQueue, err := queue.Open(queue.Options{
		Mode:      cfg.Queues.Mode,
		Key:       cfg.Queues.Credit,
		Redis:     redisClient,
		RabbitURL: cfg.RabbitURL,
		Buffer:    cfg.Wallet.Buffer,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: очередь начислений недоступна")
	}
	defer func() { _ = closeQueue() }()

	dispatcher := wallet.NewDispatcher(creditQueue, cfg.Wallet.Buffer, applog.Component(logger, "dispatcher"))
	go dispatcher.Run(ctx)
	if cfg.Queues.Mode == "" || cfg.Queues.Mode == queue.ModeDirect {
		// В режиме direct начисления применяются в этом же процессе.
		go wallet.NewWorker(creditQueue, walletService, applog.Component(logger, "wallet_worker")).Run(ctx)
	}

	ads, err := catalog.Load(cfg.Feed.CatalogFile, goal.Currency)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: рекламный каталог не загружен")
	}
	resolver := media.NewResolver(cfg.Media.BaseURL, cfg.Media.Bucket)

	viewCfg := viewing.Config{
		AdCadence:     cfg.Feed.AdCadence,
		SettleDelay:   cfg.Feed.SettleDelay,
		Cooldown:      cfg.Feed.Cooldown,
		SwipeDistance: cfg.Feed.SwipeDistance,
		TickInterval:  cfg.Feed.TickInterval,
		Goal:          goal,
		Autoplay:      cfg.Feed.Autoplay,
		IdleTTL:       cfg.Sessions.IdleTTL,
		MaxPerUser:    cfg.Sessions.MaxPerUser,
	}
	sessions := viewing.NewManager(viewing.Deps{
		Videos:    repoAdapter,
		Ads:       ads,
		Media:     resolver,
		Wallets:   repoAdapter,
		Credits:   dispatcher,
		Analytics: repoAdapter,
	}, viewCfg, applog.Component(logger, "viewing"))
	unsubscribe := authHolder.Subscribe(sessions.HandleAuthEvent)
	defer unsubscribe()

	reaper, err := startReaper(cfg.Sessions.ReaperSpec, sessions, applog.Component(logger, "reaper"))
	if err != nil {
		logger.Fatal().Err(err).Msg("api: неверное расписание очистки сессий")
	}

	server := httpinfra.NewServer(applog.Component(logger, "http"))
	h := &handlers{
		sessions:  sessions,
		wallets:   walletService,
		videos:    repoAdapter,
		media:     resolver,
		analytics: repoAdapter,
		auth:      authHolder,
		log:       applog.Component(logger, "api"),
	}
	h.mount(server.Router, authHolder)

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)
	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	<-reaper.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	closed := sessions.CloseAll()
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("api: не все начисления опубликованы")
	}
	logger.Info().Int("sessions", closed).Msg("api: сессии закрыты")
}

func goalNotifier(cfg config.AppConfig, logger zerolog.Logger) domain.Notifier {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return nil
	}
	bot, err := notifier.NewBot(cfg.Telegram.Token)
	if err != nil {
		logger.Error().Err(err).Msg("api: уведомления в Telegram отключены")
		return nil
	}
	return notifier.NewTelegram(bot, cfg.Telegram.ChatID, applog.Component(logger, "notifier"))
}
