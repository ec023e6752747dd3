package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"adzopay/internal/domain"
)

func TestMemoryCreditQueueRoundTrip(t *testing.T) {
	q := NewMemoryCreditQueue(2)
	ctx := context.Background()
	event := domain.CreditEvent{ID: "e1", SessionID: "s", ItemID: "ad-1", Amount: domain.NewMoney(25, "USD")}
	if err := q.Enqueue(ctx, event); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got, ack, err := q.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.ID != "e1" || got.IdempotencyKey() != "s:ad-1" {
		t.Fatalf("неожиданное событие: %+v", got)
	}
	if err := ack(false); err != nil {
		t.Fatalf("ack(false): %v", err)
	}
	again, ack, err := q.Receive(ctx)
	if err != nil || again.ID != "e1" {
		t.Fatalf("событие должно вернуться в очередь: %+v, %v", again, err)
	}
	if err := ack(true); err != nil {
		t.Fatalf("ack(true): %v", err)
	}
}

func TestMemoryCreditQueueCancel(t *testing.T) {
	q := NewMemoryCreditQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := q.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ожидали DeadlineExceeded, получили %v", err)
	}
}
