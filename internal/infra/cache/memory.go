package cache

import (
	"sync"
	"time"

	"adzopay/internal/domain"
)

// Memory — кэш в памяти процесса для окружений без Redis.
type Memory struct {
	mu    sync.Mutex
	now   func() time.Time
	items map[string]memoryItem
}

type memoryItem struct {
	value   []byte
	expires time.Time
}

var _ domain.Cache = (*Memory)(nil)

// NewMemory создаёт кэш в памяти.
func NewMemory() *Memory {
	return &Memory{now: time.Now, items: make(map[string]memoryItem)}
}

func (m *Memory) alive(item memoryItem) bool {
	return item.expires.IsZero() || m.now().Before(item.expires)
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

// Once выполняет функцию, если ключ ещё не задан.
func (m *Memory) Once(key string, ttl time.Duration, fn func() error) error {
	m.mu.Lock()
	if item, ok := m.items[key]; ok && m.alive(item) {
		m.mu.Unlock()
		return nil
	}
	m.items[key] = memoryItem{value: []byte("1"), expires: m.expiry(ttl)}
	m.mu.Unlock()
	if err := fn(); err != nil {
		_ = m.Del(key)
		return err
	}
	return nil
}

// Set задаёт значение.
func (m *Memory) Set(key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := append([]byte(nil), value...)
	m.items[key] = memoryItem{value: buf, expires: m.expiry(ttl)}
	return nil
}

// Get возвращает значение или ErrMiss.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[key]
	if !ok {
		return nil, ErrMiss
	}
	if !m.alive(item) {
		delete(m.items, key)
		return nil, ErrMiss
	}
	return append([]byte(nil), item.value...), nil
}

// Del удаляет ключ.
func (m *Memory) Del(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
