// Package balance строит отображение накопленной суммы относительно цели.
package balance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"adzopay/internal/domain"
)

// Display — проекция суммы и прогресса к цели.
type Display struct {
	Total   string  `json:"total"`
	Goal    string  `json:"goal"`
	Percent float64 `json:"percent"`
	Reached bool    `json:"reached"`
}

// Project форматирует сумму и считает min(total/goal, 1) * 100.
// При неположительной цели прогресс равен 100, если сумма больше нуля, иначе 0.
func Project(total, goal domain.Money) Display {
	d := Display{Total: Format(total), Goal: Format(goal)}
	switch {
	case goal.Amount <= 0:
		if total.Amount > 0 {
			d.Percent = 100
		}
	default:
		p, _ := decimal.NewFromInt(total.Amount).
			Mul(decimal.NewFromInt(100)).
			DivRound(decimal.NewFromInt(goal.Amount), 4).
			Float64()
		if p > 100 {
			p = 100
		}
		if p < 0 {
			p = 0
		}
		d.Percent = p
	}
	d.Reached = d.Percent >= 100
	return d
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// Format выводит сумму с двумя знаками после запятой и символом валюты.
func Format(m domain.Money) string {
	currency := m.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	if sym, ok := symbols[currency]; ok {
		if m.Amount < 0 {
			return "-" + sym + domain.Money{Amount: -m.Amount}.String()
		}
		return sym + m.String()
	}
	return fmt.Sprintf("%s %s", m.String(), currency)
}

// Stats — статистика сессии для боковой панели.
type Stats struct {
	Position       string `json:"position"`
	ItemsWatched   int    `json:"items_watched"`
	ItemsRemaining int    `json:"items_remaining"`
	AveragePerItem string `json:"average_per_item"`
}

// ProjectStats считает статистику по сумме, числу засчитанных элементов, длине ленты и позиции.
func ProjectStats(total domain.Money, watched, length, position int) Stats {
	remaining := length - watched
	if remaining < 0 {
		remaining = 0
	}
	avg := domain.Money{Currency: total.Currency}
	if watched > 0 {
		avg.Amount = decimal.NewFromInt(total.Amount).
			DivRound(decimal.NewFromInt(int64(watched)), 0).
			IntPart()
	}
	return Stats{
		Position:       fmt.Sprintf("%d / %d", position+1, length),
		ItemsWatched:   watched,
		ItemsRemaining: remaining,
		AveragePerItem: Format(avg),
	}
}
