package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"adzopay/internal/domain"
	"adzopay/internal/infra/metrics"
)

// RabbitCreditQueue реализует очередь начислений через AMQP.
type RabbitCreditQueue struct {
	conn  *amqp.Connection
	queue string

	pubMu sync.Mutex
	pub   *amqp.Channel

	consumeOnce sync.Once
	consumeErr  error
	deliveries  <-chan amqp.Delivery
	sub         *amqp.Channel
}

var _ domain.CreditQueue = (*RabbitCreditQueue)(nil)

// NewRabbitCreditQueue подключается к брокеру и объявляет durable-очередь.
func NewRabbitCreditQueue(amqpURL, queue string) (*RabbitCreditQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	start := time.Now()
	conn, err := amqp.Dial(amqpURL)
	metrics.ObserveNetworkRequest("rabbitmq", "dial", queue, start, err)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitCreditQueue{conn: conn, queue: queue, pub: ch}, nil
}

// Enqueue публикует событие в очередь.
func (q *RabbitCreditQueue) Enqueue(ctx context.Context, event domain.CreditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal credit: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Body:         payload,
	}
	q.pubMu.Lock()
	start := time.Now()
	err = q.pub.PublishWithContext(ctx, "", q.queue, false, false, msg)
	q.pubMu.Unlock()
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish credit: %w", err)
	}
	return nil
}

func (q *RabbitCreditQueue) startConsumer() error {
	q.consumeOnce.Do(func() {
		ch, err := q.conn.Channel()
		if err != nil {
			q.consumeErr = fmt.Errorf("open consumer channel: %w", err)
			return
		}
		if err := ch.Qos(1, 0, false); err != nil {
			q.consumeErr = fmt.Errorf("set qos: %w", err)
			return
		}
		deliveries, err := ch.Consume(q.queue, "", false, false, false, false, nil)
		if err != nil {
			q.consumeErr = fmt.Errorf("consume: %w", err)
			return
		}
		q.sub = ch
		q.deliveries = deliveries
	})
	return q.consumeErr
}

// Receive блокирующе читает событие. ack(false) возвращает сообщение брокеру.
func (q *RabbitCreditQueue) Receive(ctx context.Context) (domain.CreditEvent, domain.CreditAckFunc, error) {
	if err := q.startConsumer(); err != nil {
		return domain.CreditEvent{}, nil, err
	}
	for {
		select {
		case <-ctx.Done():
			return domain.CreditEvent{}, nil, ctx.Err()
		case d, ok := <-q.deliveries:
			if !ok {
				return domain.CreditEvent{}, nil, errors.New("rabbitmq: delivery channel closed")
			}
			var event domain.CreditEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				_ = d.Nack(false, false)
				return domain.CreditEvent{}, nil, fmt.Errorf("decode credit: %w", err)
			}
			ack := func(success bool) error {
				if success {
					return d.Ack(false)
				}
				return d.Nack(false, true)
			}
			return event, ack, nil
		}
	}
}

// Close закрывает соединение с брокером.
func (q *RabbitCreditQueue) Close() error {
	return q.conn.Close()
}
