package queue

import (
	"context"

	"adzopay/internal/domain"
)

// MemoryCreditQueue хранит события в памяти процесса для режима direct.
type MemoryCreditQueue struct {
	events chan domain.CreditEvent
}

var _ domain.CreditQueue = (*MemoryCreditQueue)(nil)

// NewMemoryCreditQueue создаёт очередь с буфером size.
func NewMemoryCreditQueue(size int) *MemoryCreditQueue {
	if size <= 0 {
		size = 1
	}
	return &MemoryCreditQueue{events: make(chan domain.CreditEvent, size)}
}

// Enqueue кладёт событие в буфер, ожидая свободного места не дольше ctx.
func (q *MemoryCreditQueue) Enqueue(ctx context.Context, event domain.CreditEvent) error {
	select {
	case q.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive ждёт следующее событие. ack(false) возвращает событие в буфер.
func (q *MemoryCreditQueue) Receive(ctx context.Context) (domain.CreditEvent, domain.CreditAckFunc, error) {
	select {
	case <-ctx.Done():
		return domain.CreditEvent{}, nil, ctx.Err()
	case event := <-q.events:
		ack := func(success bool) error {
			if success {
				return nil
			}
			return q.Enqueue(context.Background(), event)
		}
		return event, ack, nil
	}
}
