package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"gopkg.in/yaml.v3"

	"adzopay/internal/adapters/repo"
	"adzopay/internal/domain"
	"adzopay/internal/infra/config"
	"adzopay/internal/infra/db"
	applog "adzopay/internal/infra/log"
)

var args struct {
	Manifest string        `arg:"-m,--manifest" help:"YAML-файл со списком роликов"`
	Path     string        `arg:"-p,--path" help:"путь одного ролика в хранилище"`
	Title    string        `arg:"-t,--title" help:"заголовок ролика"`
	Duration time.Duration `arg:"-d,--duration" default:"30s" help:"длительность ролика"`
	Migrate  bool          `arg:"--migrate" help:"применить миграции перед загрузкой"`
}

type manifestEntry struct {
	StoragePath string `yaml:"storage_path"`
	Filename    string `yaml:"filename"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Duration    string `yaml:"duration"`
	Size        int64  `yaml:"size"`
	Mime        string `yaml:"mime"`
}

const defaultDescription = "Watch this video and earn rewards"

func defaultClips() []domain.RegisterVideoParams {
	return []domain.RegisterVideoParams{
		{
			StoragePath: "videos/AQOgywJRNGGe3EDs6oX3c3VRQ6PITTFh8dC8WXbj5zpjm9wpUGTMsLeucsUOthk35gL0vGbKBq_JBxmx_UnWF_brbpP6rXMSgJSdVAg.mp4",
			Filename:    "video1.mp4",
			Title:       "Sample Video 1",
			Description: defaultDescription,
			Duration:    domain.DefaultVideoDuration,
			Mime:        "video/mp4",
		},
		{
			StoragePath: "videos/AQOx32u2qsJZGUEn31TpNftau3gxMG1lW8BFvrtXhwtU16MwF8O5XkCs2A9oh-f6xoWPA5pj7H14_BzBzsTmQGICIEvjkR-RDpPO5rU.mp4",
			Filename:    "video2.mp4",
			Title:       "Sample Video 2",
			Description: defaultDescription,
			Duration:    domain.DefaultVideoDuration,
			Mime:        "video/mp4",
		},
	}
}

func parseManifest(data []byte) ([]domain.RegisterVideoParams, error) {
	var entries []manifestEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	out := make([]domain.RegisterVideoParams, 0, len(entries))
	for i, e := range entries {
		if e.StoragePath == "" {
			return nil, fmt.Errorf("video #%d: storage_path is required", i+1)
		}
		var duration time.Duration
		if e.Duration != "" {
			d, err := time.ParseDuration(e.Duration)
			if err != nil {
				return nil, fmt.Errorf("video %s: %w", e.StoragePath, err)
			}
			duration = d
		}
		out = append(out, domain.RegisterVideoParams{
			StoragePath: e.StoragePath,
			Filename:    e.Filename,
			Title:       e.Title,
			Description: e.Description,
			Duration:    duration,
			Size:        e.Size,
			Mime:        e.Mime,
		})
	}
	return out, nil
}

// clipsFromArgs выбирает источник: манифест, один путь или встроенные ролики.
func clipsFromArgs() ([]domain.RegisterVideoParams, error) {
	switch {
	case args.Manifest != "":
		data, err := os.ReadFile(args.Manifest)
		if err != nil {
			return nil, err
		}
		return parseManifest(data)
	case args.Path != "":
		return []domain.RegisterVideoParams{{
			StoragePath: args.Path,
			Title:       args.Title,
			Description: defaultDescription,
			Duration:    args.Duration,
		}}, nil
	default:
		return defaultClips(), nil
	}
}

func main() {
	arg.MustParse(&args)

	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)
	if cfg.PGDSN == "" {
		logger.Fatal().Msg("seed-videos: не указан PG_DSN")
	}

	clips, err := clipsFromArgs()
	if err != nil {
		logger.Fatal().Err(err).Msg("seed-videos: не удалось прочитать список роликов")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed-videos: нет подключения к БД")
	}
	defer pool.Close()
	if args.Migrate || cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("seed-videos: миграции не применены")
		}
	}

	repoAdapter := repo.NewPostgres(pool)
	registered := 0
	for _, clip := range clips {
		video, err := repoAdapter.RegisterVideo(ctx, clip)
		if err != nil {
			logger.Error().Err(err).Str("path", clip.StoragePath).Msg("seed-videos: ролик не зарегистрирован")
			continue
		}
		registered++
		path := video.StoragePath
		_ = repoAdapter.RecordBusinessMetric(ctx, domain.BusinessMetric{
			Event:    domain.BusinessMetricEventVideoRegistered,
			ItemID:   &path,
			Metadata: map[string]any{"video_id": video.ID, "source": "seed"},
		})
		logger.Info().Int64("id", video.ID).Str("path", video.StoragePath).Msg("seed-videos: ролик зарегистрирован")
	}
	if registered < len(clips) {
		logger.Fatal().Int("registered", registered).Int("total", len(clips)).Msg("seed-videos: зарегистрированы не все ролики")
	}
	logger.Info().Int("registered", registered).Msg("seed-videos: готово")
}
