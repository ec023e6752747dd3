package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"adzopay/internal/domain"
)

const sample = `
currency: EUR
ads:
  - id: 7
    title: Trail Shoes
    brand: RunFast
    reward: "0.125"
    duration: 12s
  - id: 8
    title: Coffee
    brand: Beanery
    reward: "1"
    duration: 1m
`

func TestParse(t *testing.T) {
	ads, err := Parse([]byte(sample), "EUR")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(ads) != 2 {
		t.Fatalf("ожидали 2 рекламы, получили %d", len(ads))
	}
	if ads[0].Reward != domain.NewMoney(12, "EUR") {
		t.Fatalf("0.125 должно округлиться до 12, получили %+v", ads[0].Reward)
	}
	if ads[1].Reward.Amount != 100 || ads[1].Duration != time.Minute {
		t.Fatalf("неожиданная реклама: %+v", ads[1])
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"duplicate": "ads:\n  - {id: 1, reward: \"0.1\", duration: 1s}\n  - {id: 1, reward: \"0.1\", duration: 1s}\n",
		"negative":  "ads:\n  - {id: 1, reward: \"-0.1\", duration: 1s}\n",
		"duration":  "ads:\n  - {id: 1, reward: \"0.1\", duration: soon}\n",
		"no id":     "ads:\n  - {reward: \"0.1\", duration: 1s}\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc), "USD"); err == nil {
			t.Errorf("%s: ожидали ошибку", name)
		}
	}
}

func TestLoad(t *testing.T) {
	def, err := Load("", "USD")
	if err != nil {
		t.Fatalf("встроенный каталог: %v", err)
	}
	ads, _ := def.Ads(context.Background())
	if len(ads) != 3 || ads[0].Brand != "AudioMax" || ads[1].Reward.Amount != 30 {
		t.Fatalf("неожиданный встроенный каталог: %+v", ads)
	}

	path := filepath.Join(t.TempDir(), "ads.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path, "EUR")
	if err != nil {
		t.Fatalf("загрузка файла: %v", err)
	}
	ads, _ = loaded.Ads(context.Background())
	if len(ads) != 2 || ads[0].Brand != "RunFast" {
		t.Fatalf("неожиданный каталог из файла: %+v", ads)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "USD"); err == nil {
		t.Fatal("ожидали ошибку для отсутствующего файла")
	}
}

func TestCatalogFollowsWalletCurrency(t *testing.T) {
	def, err := Load("", "EUR")
	if err != nil {
		t.Fatalf("встроенный каталог: %v", err)
	}
	ads, _ := def.Ads(context.Background())
	for _, a := range ads {
		if a.Reward.Currency != "EUR" {
			t.Fatalf("реклама %d в валюте %s, ожидали EUR", a.ID, a.Reward.Currency)
		}
	}

	implicit, err := Parse([]byte("ads:\n  - {id: 1, reward: \"0.1\", duration: 1s}\n"), "EUR")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if implicit[0].Reward != domain.NewMoney(10, "EUR") {
		t.Fatalf("без currency награда должна быть в валюте кошелька: %+v", implicit[0].Reward)
	}

	if _, err := Parse([]byte(sample), "USD"); !errors.Is(err, domain.ErrCurrencyMismatch) {
		t.Fatalf("ожидали ErrCurrencyMismatch, получили %v", err)
	}
}
