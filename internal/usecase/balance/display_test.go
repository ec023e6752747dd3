package balance

import (
	"testing"

	"adzopay/internal/domain"
)

func usd(minor int64) domain.Money { return domain.NewMoney(minor, "USD") }

func TestProject(t *testing.T) {
	tests := []struct {
		name    string
		total   domain.Money
		goal    domain.Money
		text    string
		percent float64
		reached bool
	}{
		{name: "zero", total: usd(0), goal: usd(500), text: "$0.00", percent: 0},
		{name: "scenario total", total: usd(55), goal: usd(500), text: "$0.55", percent: 11},
		{name: "fraction", total: usd(25), goal: usd(300), text: "$0.25", percent: 8.3333},
		{name: "clamped", total: usd(800), goal: usd(500), text: "$8.00", percent: 100, reached: true},
		{name: "zero goal with total", total: usd(1), goal: usd(0), text: "$0.01", percent: 100, reached: true},
		{name: "zero goal empty", total: usd(0), goal: usd(0), text: "$0.00", percent: 0},
		{name: "other currency", total: domain.NewMoney(1234, "RUB"), goal: domain.NewMoney(10000, "RUB"), text: "12.34 RUB", percent: 12.34},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(tt.total, tt.goal)
			if got.Total != tt.text || got.Percent != tt.percent || got.Reached != tt.reached {
				t.Fatalf("получили %+v", got)
			}
		})
	}
}

func TestProjectStats(t *testing.T) {
	got := ProjectStats(usd(55), 2, 7, 2)
	if got.Position != "3 / 7" || got.ItemsWatched != 2 || got.ItemsRemaining != 5 || got.AveragePerItem != "$0.28" {
		t.Fatalf("получили %+v", got)
	}
	empty := ProjectStats(usd(0), 0, 3, 0)
	if empty.AveragePerItem != "$0.00" || empty.ItemsRemaining != 3 {
		t.Fatalf("получили %+v", empty)
	}
}
