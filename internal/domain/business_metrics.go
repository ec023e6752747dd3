package domain

import (
	"context"
	"time"
)

// BusinessMetric описывает бизнесовое событие, которое сохраняется для последующего анализа.
type BusinessMetric struct {
	Event      string
	UserID     *string
	ItemID     *string
	Metadata   map[string]any
	OccurredAt time.Time
}

const (
	// BusinessMetricEventSessionOpened фиксирует открытие ленты пользователем.
	BusinessMetricEventSessionOpened = "session_opened"
	// BusinessMetricEventRewardCredited фиксирует применённое начисление.
	BusinessMetricEventRewardCredited = "reward_credited"
	// BusinessMetricEventGoalReached фиксирует достижение цели по балансу.
	BusinessMetricEventGoalReached = "goal_reached"
	// BusinessMetricEventVideoRegistered фиксирует регистрацию ролика.
	BusinessMetricEventVideoRegistered = "video_registered"
)

// BusinessMetricRepo сохраняет бизнесовые события.
type BusinessMetricRepo interface {
	RecordBusinessMetric(ctx context.Context, metric BusinessMetric) error
}
