package config

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	PGDSN       string `envconfig:"PG_DSN"`
	AutoMigrate bool   `envconfig:"PG_AUTO_MIGRATE" default:"false"`
	RedisAddr   string `envconfig:"REDIS_ADDR"`
	RabbitURL   string `envconfig:"RABBITMQ_URL"`

	Auth struct {
		URL      string        `envconfig:"AUTH_URL"`
		APIKey   string        `envconfig:"AUTH_API_KEY"`
		Timeout  time.Duration `envconfig:"AUTH_TIMEOUT" default:"5s"`
		CacheTTL time.Duration `envconfig:"AUTH_CACHE_TTL" default:"1m"`
	} `envconfig:""`

	Media struct {
		BaseURL string `envconfig:"MEDIA_BASE_URL"`
		Bucket  string `envconfig:"MEDIA_BUCKET" default:"videos"`
	} `envconfig:""`

	Feed struct {
		AdCadence     int           `envconfig:"FEED_AD_CADENCE" default:"2"`
		SettleDelay   time.Duration `envconfig:"FEED_SETTLE_DELAY" default:"300ms"`
		Cooldown      time.Duration `envconfig:"FEED_GESTURE_COOLDOWN" default:"600ms"`
		SwipeDistance float64       `envconfig:"FEED_SWIPE_DISTANCE" default:"50"`
		TickInterval  time.Duration `envconfig:"FEED_TICK_INTERVAL" default:"100ms"`
		Autoplay      bool          `envconfig:"FEED_AUTOPLAY" default:"false"`
		CatalogFile   string        `envconfig:"AD_CATALOG_FILE"`
	} `envconfig:""`

	Wallet struct {
		Goal     string `envconfig:"WALLET_GOAL" default:"5.00"`
		Currency string `envconfig:"WALLET_CURRENCY" default:"USD"`
		Buffer   int    `envconfig:"WALLET_DISPATCH_BUFFER" default:"64"`
	} `envconfig:""`

	Sessions struct {
		IdleTTL    time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m"`
		ReaperSpec string        `envconfig:"SESSION_REAPER_SPEC" default:"@every 1m"`
		MaxPerUser int           `envconfig:"SESSION_MAX_PER_USER" default:"5"`
	} `envconfig:""`

	Queues struct {
		Mode   string `envconfig:"CREDIT_QUEUE_MODE" default:"direct"`
		Credit string `envconfig:"CREDIT_QUEUE_KEY" default:"wallet_credits"`
	} `envconfig:""`

	Telegram struct {
		Token  string `envconfig:"TG_BOT_TOKEN"`
		ChatID int64  `envconfig:"TG_NOTIFY_CHAT_ID"`
	} `envconfig:""`
}

// Load загружает конфиг из .env (если он есть) и окружения.
func Load() AppConfig {
	cfg, err := load(".env")
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

func load(envFiles ...string) (AppConfig, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return AppConfig{}, err
		}
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
