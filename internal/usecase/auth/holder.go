// Package auth хранит текущего пользователя процесса и рассылает события входа и выхода.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"adzopay/internal/domain"
)

// EventType — тип события сессии пользователя.
type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
)

// Event сообщает подписчикам об изменении сессии пользователя.
type Event struct {
	Type EventType
	User domain.User
}

// Holder проверяет токены через провайдера идентичности и кэширует результат.
// Один экземпляр на процесс; экраны подписываются на его события вместо собственных проверок.
type Holder struct {
	provider domain.IdentityProvider
	cache    domain.Cache
	ttl      time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

// NewHolder создаёт держатель. cache может быть nil.
func NewHolder(provider domain.IdentityProvider, cache domain.Cache, ttl time.Duration, logger zerolog.Logger) *Holder {
	return &Holder{
		provider: provider,
		cache:    cache,
		ttl:      ttl,
		log:      logger,
		subs:     make(map[int]func(Event)),
	}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "identity:" + hex.EncodeToString(sum[:])
}

// Resolve возвращает пользователя по токену. Пустой или отклонённый токен даёт domain.ErrUnauthenticated.
func (h *Holder) Resolve(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}
	if user, ok := h.cached(token); ok {
		return user, nil
	}
	user, err := h.provider.CurrentUser(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("проверка токена: %w", err)
	}
	if user.ID == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}
	h.store(token, user)
	h.publish(Event{Type: EventSignedIn, User: user})
	return user, nil
}

func (h *Holder) cached(token string) (domain.User, bool) {
	if h.cache == nil || h.ttl <= 0 {
		return domain.User{}, false
	}
	data, err := h.cache.Get(cacheKey(token))
	if err != nil {
		return domain.User{}, false
	}
	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil || user.ID == "" {
		return domain.User{}, false
	}
	return user, true
}

func (h *Holder) store(token string, user domain.User) {
	if h.cache == nil || h.ttl <= 0 {
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := h.cache.Set(cacheKey(token), data, h.ttl); err != nil {
		h.log.Warn().Err(err).Msg("auth: не удалось закэшировать пользователя")
	}
}

// SignOut завершает сессию у провайдера, сбрасывает кэш и уведомляет подписчиков.
// Ошибка провайдера логируется: локально пользователь всё равно считается вышедшим.
func (h *Holder) SignOut(ctx context.Context, token string) (domain.User, error) {
	user, err := h.Resolve(ctx, token)
	if err != nil {
		return domain.User{}, err
	}
	if err := h.provider.SignOut(ctx, token); err != nil {
		h.log.Error().Err(err).Str("user", user.ID).Msg("auth: провайдер не завершил сессию")
	}
	if h.cache != nil {
		if err := h.cache.Del(cacheKey(token)); err != nil {
			h.log.Warn().Err(err).Msg("auth: не удалось сбросить кэш")
		}
	}
	h.publish(Event{Type: EventSignedOut, User: user})
	return user, nil
}

// Subscribe регистрирует обработчик событий. Возвращённая функция отменяет подписку.
func (h *Holder) Subscribe(fn func(Event)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *Holder) publish(ev Event) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Event), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
