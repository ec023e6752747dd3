package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"adzopay/internal/domain"
)

// Worker читает начисления из очереди и применяет их к кошелькам.
// Сообщение подтверждается и при ошибке: начисления не повторяются.
type Worker struct {
	queue   domain.CreditQueue
	service *Service
	log     zerolog.Logger
	backoff time.Duration
}

// NewWorker создаёт обработчик очереди.
func NewWorker(queue domain.CreditQueue, service *Service, logger zerolog.Logger) *Worker {
	return &Worker{queue: queue, service: service, log: logger, backoff: time.Second}
}

// Run обрабатывает очередь до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	for {
		event, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return
				}
			}
			w.log.Error().Err(err).Msg("wallet: ошибка чтения очереди")
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.backoff):
			}
			continue
		}
		w.Handle(ctx, event)
		if err := ack(true); err != nil {
			w.log.Error().Err(err).Str("key", event.IdempotencyKey()).Msg("wallet: не удалось подтвердить начисление")
		}
	}
}

// Handle применяет одно начисление и логирует результат.
func (w *Worker) Handle(ctx context.Context, event domain.CreditEvent) {
	eventLog := w.log.With().
		Str("event_id", event.ID).
		Str("user", event.UserID).
		Str("key", event.IdempotencyKey()).
		Int64("amount", event.Amount.Amount).
		Logger()
	credit, err := w.service.Apply(ctx, event)
	if err != nil {
		eventLog.Error().Err(err).Msg("wallet: начисление не применено")
		return
	}
	if !credit.Applied {
		eventLog.Info().Msg("wallet: повторное начисление пропущено")
		return
	}
	eventLog.Info().Int64("balance", credit.After.Balance.Amount).Msg("wallet: начисление применено")
}
