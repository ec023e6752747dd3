package reward

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"adzopay/internal/domain"
	"adzopay/internal/infra/eventloop"
)

// ErrAlreadyCompleted возвращается при попытке снова запустить засчитанный элемент.
var ErrAlreadyCompleted = errors.New("item already completed")

// DefaultInterval — период опроса прогресса.
const DefaultInterval = 100 * time.Millisecond

// State — состояние текущего элемента.
type State string

const (
	StateIdle      State = "idle"
	StatePlaying   State = "playing"
	StateCompleted State = "completed"
)

// Status описывает таймер для отображения.
type Status struct {
	ItemID     string  `json:"item_id"`
	State      State   `json:"state"`
	Progress   float64 `json:"progress"`
	ElapsedMS  int64   `json:"elapsed_ms"`
	DurationMS int64   `json:"duration_ms"`
}

// TimerConfig задаёт параметры таймера.
type TimerConfig struct {
	Interval  time.Duration
	UserID    string
	SessionID string
	// OnComplete вызывается один раз на элемент, когда просмотр засчитан.
	OnComplete func(domain.CreditEvent)
	Log        zerolog.Logger
}

// Timer отсчитывает время просмотра текущего элемента опросом с фиксированным периодом.
// Методы вызываются только из колбэков цикла сессии.
type Timer struct {
	loop   eventloop.Loop
	ledger *Ledger
	cfg    TimerConfig

	item    domain.FeedItem
	hasItem bool
	state   State
	started time.Time
	elapsed time.Duration
	ticker  eventloop.Timer
}

// NewTimer создаёт таймер, засчитывающий просмотры в ledger.
func NewTimer(loop eventloop.Loop, ledger *Ledger, cfg TimerConfig) *Timer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Timer{loop: loop, ledger: ledger, cfg: cfg, state: StateIdle}
}

// Start начинает просмотр item. Если item уже играет, вызов ничего не меняет.
// Засчитанный элемент не запускается повторно.
func (t *Timer) Start(item domain.FeedItem) error {
	if t.ledger.IsWatched(item.ID()) {
		t.Stop()
		t.item, t.hasItem = item, true
		t.state = StateCompleted
		return ErrAlreadyCompleted
	}
	if t.state == StatePlaying && t.hasItem && t.item.ID() == item.ID() {
		return nil
	}
	t.Stop()
	t.item, t.hasItem = item, true
	t.state = StatePlaying
	t.started = t.loop.Now()
	t.elapsed = 0
	t.ticker = t.loop.Every(t.cfg.Interval, t.tick)
	return nil
}

// Stop прекращает опрос без начисления. Прогресс сбрасывается.
// Возвращает true, если таймер работал.
func (t *Timer) Stop() bool {
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
	if t.state != StatePlaying {
		return false
	}
	t.state = StateIdle
	t.elapsed = 0
	return true
}

// Focus переключает таймер на item без запуска: прежний просмотр прерывается.
func (t *Timer) Focus(item domain.FeedItem) {
	t.Stop()
	t.item, t.hasItem = item, true
	t.elapsed = 0
	t.state = StateIdle
	if t.ledger.IsWatched(item.ID()) {
		t.state = StateCompleted
	}
}

func (t *Timer) tick() {
	if t.state != StatePlaying {
		return
	}
	t.elapsed = t.loop.Now().Sub(t.started)
	if t.elapsed < t.item.Duration() {
		return
	}
	t.ticker.Stop()
	t.ticker = nil
	credited, err := t.ledger.Credit(t.item)
	if err != nil {
		// Незасчитанный элемент не должен выглядеть просмотренным.
		t.cfg.Log.Error().Err(err).
			Str("item_id", t.item.ID()).
			Str("reward", t.item.Reward().String()).
			Msg("не удалось засчитать просмотр")
		t.state = StateIdle
		t.elapsed = 0
		return
	}
	t.elapsed = t.item.Duration()
	t.state = StateCompleted
	if !credited {
		return
	}
	if t.cfg.OnComplete != nil {
		t.cfg.OnComplete(domain.CreditEvent{
			ID:         uuid.NewString(),
			UserID:     t.cfg.UserID,
			SessionID:  t.cfg.SessionID,
			ItemID:     t.item.ID(),
			AdID:       adID(t.item),
			Amount:     t.item.Reward(),
			OccurredAt: t.loop.Now().UTC(),
		})
	}
}

func adID(item domain.FeedItem) int64 {
	if item.Kind == domain.FeedItemAd && item.Ad != nil {
		return item.Ad.ID
	}
	return 0
}

// State возвращает состояние текущего элемента.
func (t *Timer) State() State {
	return t.state
}

// Progress возвращает долю просмотра от 0 до 1.
func (t *Timer) Progress() float64 {
	if !t.hasItem {
		return 0
	}
	if t.state == StateCompleted {
		return 1
	}
	d := t.item.Duration()
	if d <= 0 {
		return 0
	}
	p := float64(t.elapsed) / float64(d)
	if p > 1 {
		p = 1
	}
	return p
}

// Status возвращает снимок таймера.
func (t *Timer) Status() Status {
	st := Status{State: t.state, Progress: t.Progress(), ElapsedMS: t.elapsed.Milliseconds()}
	if t.hasItem {
		st.ItemID = t.item.ID()
		st.DurationMS = t.item.Duration().Milliseconds()
	}
	if t.state == StateCompleted {
		st.ElapsedMS = st.DurationMS
	}
	return st
}
