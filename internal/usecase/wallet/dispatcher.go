package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"adzopay/internal/domain"
	"adzopay/internal/infra/metrics"
)

const publishTimeout = 5 * time.Second

// Dispatcher принимает начисления без ожидания и публикует их в очередь в фоне.
// Ошибки публикации логируются и не повторяются.
type Dispatcher struct {
	queue  domain.CreditQueue
	log    zerolog.Logger
	events chan domain.CreditEvent

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

var _ domain.CreditSubmitter = (*Dispatcher)(nil)

// NewDispatcher создаёт диспетчер с буфером buffer.
func NewDispatcher(queue domain.CreditQueue, buffer int, logger zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		queue:  queue,
		log:    logger,
		events: make(chan domain.CreditEvent, buffer),
		done:   make(chan struct{}),
	}
}

// Submit ставит событие в буфер. При переполненном буфере событие отбрасывается с записью в лог.
func (d *Dispatcher) Submit(event domain.CreditEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.fail(event, "wallet: диспетчер закрыт, начисление отброшено", nil)
		return
	}
	select {
	case d.events <- event:
	default:
		d.fail(event, "wallet: буфер начислений переполнен, начисление отброшено", nil)
	}
}

// Run публикует события до закрытия диспетчера, затем дочитывает буфер.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for event := range d.events {
		d.publish(ctx, event)
	}
}

func (d *Dispatcher) publish(ctx context.Context, event domain.CreditEvent) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := d.queue.Enqueue(pubCtx, event); err != nil {
		d.fail(event, "wallet: не удалось опубликовать начисление", err)
		return
	}
	d.log.Debug().Str("key", event.IdempotencyKey()).Int64("amount", event.Amount.Amount).Msg("wallet: начисление опубликовано")
}

func (d *Dispatcher) fail(event domain.CreditEvent, msg string, err error) {
	metrics.CreditPublishFailures.Inc()
	d.log.Error().Err(err).
		Str("user", event.UserID).
		Str("key", event.IdempotencyKey()).
		Int64("amount", event.Amount.Amount).
		Msg(msg)
}

// Close прекращает приём событий и ждёт публикации буфера, пока не истёк ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
