package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"adzopay/internal/domain"
	"adzopay/internal/infra/metrics"
)

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanWallet(row pgx.Row) (domain.Wallet, error) {
	var (
		w        domain.Wallet
		currency string
	)
	err := row.Scan(&w.UserID, &w.Balance.Amount, &w.TotalEarned.Amount, &currency, &w.AdsWatched, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return domain.Wallet{}, err
	}
	w.Balance.Currency = currency
	w.TotalEarned.Currency = currency
	return w, nil
}

func getWallet(ctx context.Context, q queryRower, userID string, forUpdate bool) (domain.Wallet, error) {
	query := `
SELECT user_id, balance, total_earned, currency, ads_watched, created_at, updated_at
FROM user_wallets
WHERE user_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	start := time.Now()
	w, err := scanWallet(q.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrWalletNotFound
	}
	metrics.ObserveNetworkRequest("postgres", "user_wallets_get", "user_wallets", start, err)
	return w, err
}

// GetWallet возвращает кошелёк пользователя или domain.ErrWalletNotFound.
func (p *Postgres) GetWallet(ctx context.Context, userID string) (domain.Wallet, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	return getWallet(ctx, p.pool, userID, false)
}

// ApplyCredit записывает просмотр и пополняет кошелёк в одной транзакции.
// Повтор с тем же ключом идемпотентности ничего не меняет и возвращает Applied=false.
func (p *Postgres) ApplyCredit(ctx context.Context, event domain.CreditEvent) (domain.WalletCredit, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	currency := event.Amount.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	watchedAt := event.OccurredAt
	if watchedAt.IsZero() {
		watchedAt = time.Now().UTC()
	}

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "user_wallets", start, err)
	if err != nil {
		return domain.WalletCredit{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	start = time.Now()
	_, err = tx.Exec(ctx, `
INSERT INTO user_wallets (user_id, currency)
VALUES ($1, $2)
ON CONFLICT (user_id) DO NOTHING
`, event.UserID, currency)
	metrics.ObserveNetworkRequest("postgres", "user_wallets_ensure", "user_wallets", start, err)
	if err != nil {
		return domain.WalletCredit{}, err
	}

	before, err := getWallet(ctx, tx, event.UserID, true)
	if err != nil {
		return domain.WalletCredit{}, err
	}
	if before.Balance.Currency != currency {
		return domain.WalletCredit{}, domain.ErrCurrencyMismatch
	}

	view := domain.AdView{
		UserID:         event.UserID,
		SessionID:      event.SessionID,
		ItemID:         event.ItemID,
		AdID:           event.AdID,
		Completed:      true,
		Earnings:       domain.NewMoney(event.Amount.Amount, currency),
		IdempotencyKey: event.IdempotencyKey(),
	}
	start = time.Now()
	err = tx.QueryRow(ctx, `
INSERT INTO ad_views (user_id, session_id, item_id, ad_id, completed, earnings, currency, idempotency_key, watched_at)
VALUES ($1, $2, $3, NULLIF($4, 0), TRUE, $5, $6, $7, $8)
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING id, watched_at
`, view.UserID, view.SessionID, view.ItemID, view.AdID, view.Earnings.Amount, currency, view.IdempotencyKey, watchedAt).
		Scan(&view.ID, &view.WatchedAt)
	metrics.ObserveNetworkRequest("postgres", "ad_views_insert", "ad_views", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.WalletCredit{Applied: false, Before: before, After: before, View: view}, nil
	}
	if err != nil {
		return domain.WalletCredit{}, err
	}

	start = time.Now()
	after, err := scanWallet(tx.QueryRow(ctx, `
UPDATE user_wallets
SET balance = balance + $2,
    total_earned = total_earned + $2,
    ads_watched = ads_watched + 1,
    updated_at = now()
WHERE user_id = $1
RETURNING user_id, balance, total_earned, currency, ads_watched, created_at, updated_at
`, event.UserID, view.Earnings.Amount))
	metrics.ObserveNetworkRequest("postgres", "user_wallets_credit", "user_wallets", start, err)
	if err != nil {
		return domain.WalletCredit{}, err
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "user_wallets", start, err)
	if err != nil {
		return domain.WalletCredit{}, err
	}
	return domain.WalletCredit{Applied: true, Before: before, After: after, View: view}, nil
}
