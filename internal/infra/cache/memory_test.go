package cache

import (
	"errors"
	"testing"
	"time"
)

func TestMemoryTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	if err := m.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := m.Get("k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := m.Get("k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("ожидали ErrMiss после истечения TTL, получили %v", err)
	}
}

func TestMemoryOnce(t *testing.T) {
	m := NewMemory()
	calls := 0
	for i := 0; i < 3; i++ {
		if err := m.Once("job", time.Hour, func() error { calls++; return nil }); err != nil {
			t.Fatalf("Once: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("fn вызвана %d раз", calls)
	}

	failing := errors.New("boom")
	if err := m.Once("flaky", time.Hour, func() error { return failing }); !errors.Is(err, failing) {
		t.Fatalf("ожидали ошибку fn, получили %v", err)
	}
	if err := m.Once("flaky", time.Hour, func() error { calls++; return nil }); err != nil {
		t.Fatalf("Once: %v", err)
	}
	if calls != 2 {
		t.Fatal("после ошибки ключ должен освобождаться")
	}
}
