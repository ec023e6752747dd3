package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrWalletNotFound возвращается, когда кошелёк пользователя ещё не создан.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrCurrencyMismatch возвращается при сложении сумм в разных валютах.
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// DefaultCurrency используется, если валюта не задана в конфигурации.
const DefaultCurrency = "USD"

// Money описывает сумму в минимальных единицах валюты (центах).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewMoney создаёт сумму из минимальных единиц.
func NewMoney(minor int64, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: minor, Currency: currency}
}

// ParseMoney разбирает десятичную запись ("0.25") в минимальные единицы.
// Дробная часть длиннее двух знаков округляется по банковским правилам.
func ParseMoney(value, currency string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("разбор суммы %q: %w", value, err)
	}
	if d.IsNegative() {
		return Money{}, fmt.Errorf("сумма %q отрицательная", value)
	}
	minor := d.Shift(2).RoundBank(0).IntPart()
	return NewMoney(minor, currency), nil
}

// IsZero сообщает, что сумма нулевая.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Add складывает суммы. Нулевая сумма без валюты совместима с любой.
func (m Money) Add(other Money) (Money, error) {
	switch {
	case other.Amount == 0 && other.Currency == "":
		return m, nil
	case m.Amount == 0 && m.Currency == "":
		return other, nil
	case m.Currency != other.Currency:
		return m, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Decimal возвращает сумму в основных единицах.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -2)
}

// String форматирует сумму с двумя знаками после запятой.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Wallet представляет кошелёк пользователя.
type Wallet struct {
	UserID      string    `json:"user_id"`
	Balance     Money     `json:"balance"`
	TotalEarned Money     `json:"total_earned"`
	AdsWatched  int       `json:"ads_watched"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AdView описывает запись о просмотре рекламы.
type AdView struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id"`
	SessionID      string    `json:"session_id"`
	ItemID         string    `json:"item_id"`
	AdID           int64     `json:"ad_id"`
	Completed      bool      `json:"completed"`
	Earnings       Money     `json:"earnings"`
	IdempotencyKey string    `json:"idempotency_key"`
	WatchedAt      time.Time `json:"watched_at"`
}

// WalletCredit описывает результат применения начисления к кошельку.
type WalletCredit struct {
	// Applied ложно, если начисление с таким ключом уже было применено.
	Applied bool
	Before  Wallet
	After   Wallet
	View    AdView
}
