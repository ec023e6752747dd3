// Package wallet применяет начисления к кошелькам и отдаёт их проекцию.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"adzopay/internal/domain"
	"adzopay/internal/infra/metrics"
	"adzopay/internal/usecase/balance"
)

// ErrInvalidCredit возвращается для события без пользователя, элемента или с отрицательной суммой.
var ErrInvalidCredit = errors.New("invalid credit event")

// Service применяет начисления и считает проекцию кошелька.
type Service struct {
	wallets   domain.WalletRepo
	analytics domain.BusinessMetricRepo
	notifier  domain.Notifier
	goal      domain.Money
	log       zerolog.Logger
}

// NewService создаёт сервис. analytics и notifier могут быть nil.
func NewService(wallets domain.WalletRepo, analytics domain.BusinessMetricRepo, notifier domain.Notifier, goal domain.Money, logger zerolog.Logger) *Service {
	return &Service{wallets: wallets, analytics: analytics, notifier: notifier, goal: goal, log: logger}
}

// Goal возвращает цель по балансу.
func (s *Service) Goal() domain.Money {
	return s.goal
}

// Apply применяет начисление идемпотентно по ключу сессия:элемент.
func (s *Service) Apply(ctx context.Context, event domain.CreditEvent) (domain.WalletCredit, error) {
	if event.UserID == "" || event.ItemID == "" || event.SessionID == "" || event.Amount.Amount < 0 {
		return domain.WalletCredit{}, ErrInvalidCredit
	}
	credit, err := s.wallets.ApplyCredit(ctx, event)
	if err != nil {
		metrics.WalletApplyTotal.WithLabelValues("error").Inc()
		return domain.WalletCredit{}, fmt.Errorf("применение начисления %s: %w", event.IdempotencyKey(), err)
	}
	if !credit.Applied {
		metrics.WalletApplyTotal.WithLabelValues("duplicate").Inc()
		return credit, nil
	}
	metrics.WalletApplyTotal.WithLabelValues("applied").Inc()

	userID, itemID := event.UserID, event.ItemID
	s.record(ctx, domain.BusinessMetric{
		Event:  domain.BusinessMetricEventRewardCredited,
		UserID: &userID,
		ItemID: &itemID,
		Metadata: map[string]any{
			"event_id":   event.ID,
			"session_id": event.SessionID,
			"amount":     event.Amount.Amount,
			"currency":   event.Amount.Currency,
		},
		OccurredAt: event.OccurredAt,
	})

	if s.crossedGoal(credit) {
		s.record(ctx, domain.BusinessMetric{
			Event:    domain.BusinessMetricEventGoalReached,
			UserID:   &userID,
			Metadata: map[string]any{"balance": credit.After.Balance.Amount, "goal": s.goal.Amount},
		})
		if s.notifier != nil {
			if err := s.notifier.NotifyGoalReached(ctx, credit.After, s.goal); err != nil {
				s.log.Error().Err(err).Str("user", userID).Msg("wallet: не удалось отправить уведомление о цели")
			}
		}
	}
	return credit, nil
}

func (s *Service) crossedGoal(credit domain.WalletCredit) bool {
	if s.goal.Amount <= 0 {
		return false
	}
	return credit.Before.Balance.Amount < s.goal.Amount && credit.After.Balance.Amount >= s.goal.Amount
}

func (s *Service) record(ctx context.Context, metric domain.BusinessMetric) {
	if s.analytics == nil {
		return
	}
	if err := s.analytics.RecordBusinessMetric(ctx, metric); err != nil {
		s.log.Error().Err(err).Str("event", metric.Event).Msg("wallet: не удалось сохранить бизнес-метрику")
	}
}

// Projection — кошелёк с прогрессом к цели и уровнем пользователя.
type Projection struct {
	Wallet      domain.Wallet        `json:"wallet"`
	Balance     balance.Display      `json:"balance"`
	TotalEarned string               `json:"total_earned"`
	Level       domain.LevelProgress `json:"level"`
}

// Project возвращает проекцию кошелька. Отсутствующий кошелёк считается пустым.
func (s *Service) Project(ctx context.Context, userID string) (Projection, error) {
	w, err := s.wallets.GetWallet(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrWalletNotFound) {
			return Projection{}, fmt.Errorf("получение кошелька: %w", err)
		}
		w = domain.Wallet{
			UserID:      userID,
			Balance:     domain.NewMoney(0, s.goal.Currency),
			TotalEarned: domain.NewMoney(0, s.goal.Currency),
		}
	}
	return Projection{
		Wallet:      w,
		Balance:     balance.Project(w.Balance, s.goal),
		TotalEarned: balance.Format(w.TotalEarned),
		Level:       domain.LevelForAdsWatched(w.AdsWatched),
	}, nil
}
