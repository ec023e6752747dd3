package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"adzopay/internal/domain"
	"adzopay/internal/infra/metrics"
)

// RedisCreditQueue реализует очередь начислений на базе Redis lists.
type RedisCreditQueue struct {
	client *redis.Client
	key    string
}

var _ domain.CreditQueue = (*RedisCreditQueue)(nil)

// NewRedisCreditQueue создаёт очередь по указанному ключу.
func NewRedisCreditQueue(client *redis.Client, key string) *RedisCreditQueue {
	return &RedisCreditQueue{client: client, key: key}
}

// Enqueue публикует событие в очередь.
func (q *RedisCreditQueue) Enqueue(ctx context.Context, event domain.CreditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal credit: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push credit: %w", err)
	}
	return nil
}

// Receive блокирующе читает событие. ack(false) возвращает событие в хвост очереди.
func (q *RedisCreditQueue) Receive(ctx context.Context) (domain.CreditEvent, domain.CreditAckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.CreditEvent{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.CreditEvent{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.CreditEvent{}, nil, err
		}
		if len(res) != 2 {
			return domain.CreditEvent{}, nil, errors.New("redis queue: unexpected response")
		}
		raw := res[1]
		var event domain.CreditEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			return domain.CreditEvent{}, nil, fmt.Errorf("decode credit: %w", err)
		}
		ack := func(success bool) error {
			if success {
				return nil
			}
			return q.client.RPush(context.Background(), q.key, raw).Err()
		}
		return event, ack, nil
	}
}
