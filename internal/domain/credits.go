package domain

import (
	"context"
	"time"
)

// CreditEvent — однократное начисление за полностью просмотренный элемент ленты.
type CreditEvent struct {
	ID         string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	ItemID     string    `json:"item_id"`
	AdID       int64     `json:"ad_id,omitempty"`
	Amount     Money     `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// IdempotencyKey связывает начисление с элементом в пределах сессии просмотра.
func (e CreditEvent) IdempotencyKey() string {
	return e.SessionID + ":" + e.ItemID
}

// CreditQueue описывает очередь событий начисления.
type CreditQueue interface {
	Enqueue(ctx context.Context, event CreditEvent) error
	Receive(ctx context.Context) (CreditEvent, CreditAckFunc, error)
}

// CreditAckFunc подтверждает обработку события или возвращает его в очередь.
type CreditAckFunc func(success bool) error

// CreditSubmitter принимает начисления без ожидания результата.
type CreditSubmitter interface {
	Submit(event CreditEvent)
}
