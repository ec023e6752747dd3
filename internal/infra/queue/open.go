package queue

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"adzopay/internal/domain"
)

// Режимы очереди начислений.
const (
	ModeDirect   = "direct"
	ModeRedis    = "redis"
	ModeRabbitMQ = "rabbitmq"
)

// Options описывают выбор очереди начислений.
type Options struct {
	Mode      string
	Key       string
	Redis     *redis.Client
	RabbitURL string
	Buffer    int
}

// Open создаёт очередь по режиму. Возвращаемая функция освобождает соединение брокера.
func Open(opts Options) (domain.CreditQueue, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case "", ModeDirect:
		return NewMemoryCreditQueue(opts.Buffer), noop, nil
	case ModeRedis:
		if opts.Redis == nil {
			return nil, nil, fmt.Errorf("credit queue mode %q requires REDIS_ADDR", opts.Mode)
		}
		return NewRedisCreditQueue(opts.Redis, opts.Key), noop, nil
	case ModeRabbitMQ:
		if opts.RabbitURL == "" {
			return nil, nil, fmt.Errorf("credit queue mode %q requires RABBITMQ_URL", opts.Mode)
		}
		rq, err := NewRabbitCreditQueue(opts.RabbitURL, opts.Key)
		if err != nil {
			return nil, nil, err
		}
		return rq, rq.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown credit queue mode %q", opts.Mode)
	}
}
