// Package gesture превращает события колеса и свайпы в команды навигации.
package gesture

import (
	"math"
	"time"
)

const (
	DefaultCooldown    = 600 * time.Millisecond
	DefaultMinDistance = 50.0
)

// Kind — тип входного события.
type Kind string

const (
	KindWheel Kind = "wheel"
	KindSwipe Kind = "swipe"
)

// Intent — распознанная команда.
type Intent string

const (
	IntentNone    Intent = "none"
	IntentAdvance Intent = "advance"
	IntentRetreat Intent = "retreat"
)

// Result объясняет, почему событие принято или отброшено.
type Result string

const (
	ResultAccepted      Result = "accepted"
	ResultNoMovement    Result = "no_movement"
	ResultTooShort      Result = "too_short"
	ResultCooldown      Result = "cooldown"
	ResultTransitioning Result = "transitioning"
	ResultUnknownKind   Result = "unknown_kind"
)

// Event — событие ввода. Для колеса используется DeltaY, для свайпа StartY и EndY.
type Event struct {
	Kind   Kind    `json:"kind"`
	DeltaY float64 `json:"delta_y,omitempty"`
	StartY float64 `json:"start_y,omitempty"`
	EndY   float64 `json:"end_y,omitempty"`
}

// Clock возвращает текущее время цикла.
type Clock interface {
	Now() time.Time
}

// Config задаёт пороги детектора.
type Config struct {
	Cooldown    time.Duration
	MinDistance float64
}

// Detector распознаёт жесты с задержкой между принятыми событиями.
// Методы вызываются только из колбэков цикла сессии.
type Detector struct {
	clock        Clock
	cfg          Config
	lastAccepted time.Time
	hasAccepted  bool
}

// NewDetector создаёт детектор. Неположительный MinDistance заменяется DefaultMinDistance.
func NewDetector(clock Clock, cfg Config) *Detector {
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	if cfg.MinDistance <= 0 {
		cfg.MinDistance = DefaultMinDistance
	}
	return &Detector{clock: clock, cfg: cfg}
}

// Detect распознаёт событие. transitioning — идёт ли сейчас переход по ленте.
func (d *Detector) Detect(ev Event, transitioning bool) (Intent, Result) {
	if transitioning {
		return IntentNone, ResultTransitioning
	}
	intent, result := classify(ev, d.cfg.MinDistance)
	if result != ResultAccepted {
		return IntentNone, result
	}
	now := d.clock.Now()
	if d.hasAccepted && now.Sub(d.lastAccepted) < d.cfg.Cooldown {
		return IntentNone, ResultCooldown
	}
	d.lastAccepted = now
	d.hasAccepted = true
	return intent, ResultAccepted
}

func classify(ev Event, minDistance float64) (Intent, Result) {
	switch ev.Kind {
	case KindWheel:
		switch {
		case ev.DeltaY > 0:
			return IntentAdvance, ResultAccepted
		case ev.DeltaY < 0:
			return IntentRetreat, ResultAccepted
		}
		return IntentNone, ResultNoMovement
	case KindSwipe:
		// Движение пальца вверх уменьшает координату и листает вперёд.
		dist := ev.StartY - ev.EndY
		if math.Abs(dist) <= minDistance {
			return IntentNone, ResultTooShort
		}
		if dist > 0 {
			return IntentAdvance, ResultAccepted
		}
		return IntentRetreat, ResultAccepted
	}
	return IntentNone, ResultUnknownKind
}
