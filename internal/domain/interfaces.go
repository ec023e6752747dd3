package domain

import (
	"context"
	"errors"
	"time"
)

// ErrUnauthenticated возвращается, если токен не принадлежит ни одному пользователю.
var ErrUnauthenticated = errors.New("unauthenticated")

// IdentityProvider проверяет токен во внешнем провайдере и возвращает пользователя.
type IdentityProvider interface {
	CurrentUser(ctx context.Context, token string) (User, error)
	SignOut(ctx context.Context, token string) error
}

// MediaResolver превращает путь в хранилище в публичный адрес.
type MediaResolver interface {
	PublicURL(storagePath string) string
}

// VideoRepo управляет каталогом роликов.
type VideoRepo interface {
	ListVideos(ctx context.Context) ([]Video, error)
	RegisterVideo(ctx context.Context, params RegisterVideoParams) (Video, error)
}

// WalletRepo хранит кошельки и записи о просмотрах.
type WalletRepo interface {
	GetWallet(ctx context.Context, userID string) (Wallet, error)
	ApplyCredit(ctx context.Context, event CreditEvent) (WalletCredit, error)
}

// Notifier отправляет уведомления операторам.
type Notifier interface {
	NotifyGoalReached(ctx context.Context, wallet Wallet, goal Money) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
	Del(key string) error
}
