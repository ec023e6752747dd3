// Package catalog загружает рекламный каталог из YAML.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"adzopay/internal/domain"
)

type file struct {
	Currency string  `yaml:"currency"`
	Ads      []entry `yaml:"ads"`
}

type entry struct {
	ID          int64  `yaml:"id"`
	Title       string `yaml:"title"`
	Brand       string `yaml:"brand"`
	Reward      string `yaml:"reward"`
	Duration    string `yaml:"duration"`
	Description string `yaml:"description"`
	MediaURL    string `yaml:"media_url"`
	Username    string `yaml:"username"`
	Category    string `yaml:"category"`
}

// Static отдаёт один и тот же список рекламы каждой новой ленте.
type Static struct {
	ads []domain.Ad
}

// NewStatic оборачивает готовый список.
func NewStatic(ads []domain.Ad) *Static {
	return &Static{ads: ads}
}

// Default возвращает встроенный каталог из трёх роликов с наградами в currency.
func Default(currency string) *Static {
	return NewStatic([]domain.Ad{
		{ID: 1, Title: "Premium Headphones", Brand: "AudioMax", Reward: domain.NewMoney(25, currency), Duration: 15 * time.Second,
			Description: "Experience crystal clear sound with our latest wireless headphones", Username: "audiomax_official", Category: "audio"},
		{ID: 2, Title: "Fitness Tracker", Brand: "FitLife", Reward: domain.NewMoney(30, currency), Duration: 20 * time.Second,
			Description: "Track your health and fitness goals with advanced sensors", Username: "fitlife_app", Category: "fitness"},
		{ID: 3, Title: "Smart Watch", Brand: "TechWear", Reward: domain.NewMoney(28, currency), Duration: 18 * time.Second,
			Description: "Stay connected with our advanced smart watch technology", Username: "techwear_official", Category: "wearables"},
	})
}

// Load читает каталог из файла. Пустой путь означает встроенный каталог.
// Награды каталога должны быть в валюте кошелька currency.
func Load(path, currency string) (*Static, error) {
	if strings.TrimSpace(path) == "" {
		return Default(currency), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ad catalog %s: %w", path, err)
	}
	ads, err := Parse(data, currency)
	if err != nil {
		return nil, fmt.Errorf("parse ad catalog %s: %w", path, err)
	}
	return NewStatic(ads), nil
}

// Parse разбирает YAML-документ каталога. Без поля currency награды
// считаются в currency, иное значение поля отклоняется.
func Parse(data []byte, currency string) ([]domain.Ad, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	currency = domain.NewMoney(0, currency).Currency
	switch {
	case f.Currency == "":
		f.Currency = currency
	case !strings.EqualFold(f.Currency, currency):
		return nil, fmt.Errorf("catalog currency %s: %w: wallet uses %s", f.Currency, domain.ErrCurrencyMismatch, currency)
	default:
		f.Currency = currency
	}
	seen := make(map[int64]struct{}, len(f.Ads))
	ads := make([]domain.Ad, 0, len(f.Ads))
	for i, e := range f.Ads {
		if e.ID <= 0 {
			return nil, fmt.Errorf("ad #%d: id must be positive", i+1)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("ad %d: duplicate id", e.ID)
		}
		seen[e.ID] = struct{}{}

		reward, err := domain.ParseMoney(e.Reward, f.Currency)
		if err != nil {
			return nil, fmt.Errorf("ad %d: %w", e.ID, err)
		}
		duration, err := time.ParseDuration(e.Duration)
		if err != nil || duration <= 0 {
			return nil, fmt.Errorf("ad %d: invalid duration %q", e.ID, e.Duration)
		}
		ads = append(ads, domain.Ad{
			ID:          e.ID,
			Title:       e.Title,
			Brand:       e.Brand,
			Reward:      reward,
			Duration:    duration,
			Description: e.Description,
			MediaURL:    e.MediaURL,
			Username:    e.Username,
			Category:    e.Category,
		})
	}
	return ads, nil
}

// Ads возвращает копию каталога.
func (s *Static) Ads(context.Context) ([]domain.Ad, error) {
	out := make([]domain.Ad, len(s.ads))
	copy(out, s.ads)
	return out, nil
}
