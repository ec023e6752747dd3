// Package viewing связывает жесты, ленту, таймер и баланс в сессию просмотра.
//
// Поток данных односторонний: жест даёт команду, лента меняет позицию,
// таймер сбрасывается на новый элемент, засчитанный просмотр попадает в журнал,
// журнал определяет отображаемый баланс. Все изменения выполняются на цикле сессии.
package viewing

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"adzopay/internal/domain"
	"adzopay/internal/infra/eventloop"
	"adzopay/internal/infra/metrics"
	"adzopay/internal/usecase/balance"
	"adzopay/internal/usecase/feed"
	"adzopay/internal/usecase/gesture"
	"adzopay/internal/usecase/reward"
)

var (
	// ErrSessionNotFound возвращается для неизвестной или чужой сессии.
	ErrSessionNotFound = errors.New("viewing session not found")
	// ErrSessionClosed возвращается при обращении к закрытой сессии.
	ErrSessionClosed = errors.New("viewing session closed")
)

// Session обслуживает просмотр ленты одним пользователем.
type Session struct {
	id       string
	user     domain.User
	loop     eventloop.Loop
	holder   *feed.Holder
	ledger   *reward.Ledger
	timer    *reward.Timer
	gestures *gesture.Detector
	credits  domain.CreditSubmitter
	goal     domain.Money
	autoplay bool
	wallet   *WalletView
	log      zerolog.Logger

	createdAt  time.Time
	lastActive atomic.Int64
	closed     atomic.Bool
}

type sessionParams struct {
	id      string
	user    domain.User
	loop    eventloop.Loop
	items   []domain.FeedItem
	credits domain.CreditSubmitter
	wallet  *WalletView
	cfg     Config
	now     time.Time
	log     zerolog.Logger
}

func newSession(p sessionParams) (*Session, error) {
	s := &Session{
		id:        p.id,
		user:      p.user,
		loop:      p.loop,
		ledger:    reward.NewLedger(p.cfg.Goal.Currency),
		credits:   p.credits,
		goal:      p.cfg.Goal,
		autoplay:  p.cfg.Autoplay,
		wallet:    p.wallet,
		log:       p.log,
		createdAt: p.now,
	}
	holder, err := feed.NewHolder(p.loop, p.items, s.ledger, p.cfg.SettleDelay)
	if err != nil {
		return nil, err
	}
	s.holder = holder
	s.timer = reward.NewTimer(p.loop, s.ledger, reward.TimerConfig{
		Interval:   p.cfg.TickInterval,
		UserID:     p.user.ID,
		SessionID:  p.id,
		OnComplete: s.onComplete,
		Log:        p.log,
	})
	s.gestures = gesture.NewDetector(p.loop, gesture.Config{Cooldown: p.cfg.Cooldown, MinDistance: p.cfg.SwipeDistance})
	s.touch(p.now)
	if err := p.loop.Do(context.Background(), func() {
		s.timer.Focus(s.holder.Current())
		if s.autoplay {
			_ = s.timer.Start(s.holder.Current())
		}
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// ID возвращает идентификатор сессии.
func (s *Session) ID() string { return s.id }

// UserID возвращает владельца сессии.
func (s *Session) UserID() string { return s.user.ID }

// CreatedAt возвращает время открытия.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastActive возвращает время последнего обращения.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastActive.Store(now.UnixNano())
}

// do выполняет fn на цикле сессии.
func (s *Session) do(ctx context.Context, fn func()) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	err := s.loop.Do(ctx, func() {
		s.touch(s.loop.Now())
		fn()
	})
	if errors.Is(err, eventloop.ErrClosed) {
		return ErrSessionClosed
	}
	return err
}

func (s *Session) onComplete(event domain.CreditEvent) {
	item, _ := s.holder.Item(event.ItemID)
	metrics.ObserveReward(string(item.Kind), event.Amount.Currency, event.Amount.Amount)
	s.log.Info().
		Str("item", event.ItemID).
		Int64("amount", event.Amount.Amount).
		Int64("total", s.ledger.Total().Amount).
		Msg("viewing: просмотр засчитан")
	if event.Amount.IsZero() || s.credits == nil {
		return
	}
	s.credits.Submit(event)
}

// navigate выполняется на цикле.
func (s *Session) navigate(dir feed.Direction) error {
	item, err := s.holder.Advance(dir)
	metrics.ObserveNavigation(dir.String(), err == nil)
	if err != nil {
		return err
	}
	s.timer.Focus(item)
	if s.autoplay && !s.ledger.IsWatched(item.ID()) {
		_ = s.timer.Start(item)
	}
	return nil
}

// GestureResult описывает результат обработки жеста.
type GestureResult struct {
	Intent   gesture.Intent `json:"intent"`
	Result   gesture.Result `json:"result"`
	Snapshot Snapshot       `json:"snapshot"`
}

// Gesture распознаёт событие ввода и при необходимости переходит по ленте.
func (s *Session) Gesture(ctx context.Context, ev gesture.Event) (GestureResult, error) {
	var res GestureResult
	err := s.do(ctx, func() {
		res.Intent, res.Result = s.gestures.Detect(ev, s.holder.Transitioning())
		metrics.ObserveGesture(string(ev.Kind), string(res.Result))
		switch res.Intent {
		case gesture.IntentAdvance:
			_ = s.navigate(feed.Forward)
		case gesture.IntentRetreat:
			_ = s.navigate(feed.Backward)
		}
		res.Snapshot = s.snapshot()
	})
	return res, err
}

// Advance переходит на следующий элемент.
func (s *Session) Advance(ctx context.Context) (Snapshot, error) {
	return s.move(ctx, feed.Forward)
}

// Retreat переходит на предыдущий элемент.
func (s *Session) Retreat(ctx context.Context) (Snapshot, error) {
	return s.move(ctx, feed.Backward)
}

func (s *Session) move(ctx context.Context, dir feed.Direction) (Snapshot, error) {
	var (
		snap   Snapshot
		navErr error
	)
	err := s.do(ctx, func() {
		navErr = s.navigate(dir)
		snap = s.snapshot()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, navErr
}

// Play запускает таймер текущего элемента.
func (s *Session) Play(ctx context.Context) (Snapshot, error) {
	var (
		snap     Snapshot
		startErr error
	)
	err := s.do(ctx, func() {
		startErr = s.timer.Start(s.holder.Current())
		snap = s.snapshot()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, startErr
}

// Stop останавливает таймер без начисления.
func (s *Session) Stop(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func() {
		s.timer.Stop()
		snap = s.snapshot()
	})
	return snap, err
}

// ToggleLike переключает лайк текущего элемента.
func (s *Session) ToggleLike(ctx context.Context) (bool, Snapshot, error) {
	var (
		liked bool
		snap  Snapshot
	)
	err := s.do(ctx, func() {
		liked = s.holder.ToggleLike()
		snap = s.snapshot()
	})
	return liked, snap, err
}

// ReportMediaError фиксирует ошибку воспроизведения. Элемент остаётся незасчитанным,
// а запущенный для него таймер останавливается.
func (s *Session) ReportMediaError(ctx context.Context, itemID, reason string) (Snapshot, error) {
	var (
		snap   Snapshot
		itemOK bool
	)
	err := s.do(ctx, func() {
		if itemID == "" {
			itemID = s.holder.Current().ID()
		}
		_, itemOK = s.holder.Item(itemID)
		if !itemOK {
			snap = s.snapshot()
			return
		}
		metrics.MediaErrors.Inc()
		s.log.Warn().Str("item", itemID).Str("reason", reason).Msg("viewing: ошибка воспроизведения")
		if s.holder.Current().ID() == itemID {
			s.timer.Stop()
		}
		snap = s.snapshot()
	})
	if err != nil {
		return Snapshot{}, err
	}
	if !itemOK {
		return snap, feed.ErrUnknownItem
	}
	return snap, nil
}

// Snapshot возвращает текущее состояние.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func() {
		snap = s.snapshot()
	})
	return snap, err
}

func (s *Session) snapshot() Snapshot {
	items := s.holder.Items()
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, itemView(item, s.ledger.IsWatched(item.ID()), s.holder.IsLiked(item.ID())))
	}
	total := s.ledger.Total()
	return Snapshot{
		SessionID:     s.id,
		Position:      s.holder.Position(),
		Length:        s.holder.Len(),
		Current:       views[s.holder.Position()],
		Items:         views,
		Transitioning: s.holder.Transitioning(),
		Timer:         s.timer.Status(),
		Watched:       s.ledger.Watched(),
		Liked:         s.holder.Liked(),
		Total:         total,
		Balance:       balance.Project(total, s.goal),
		Stats:         balance.ProjectStats(total, s.ledger.Count(), s.holder.Len(), s.holder.Position()),
		Wallet:        s.wallet,
		Autoplay:      s.autoplay,
	}
}

// Close останавливает таймеры и цикл сессии. Повторные вызовы ничего не делают.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.loop.Do(ctx, func() {
		s.timer.Stop()
		s.holder.Close()
	})
	s.loop.Close()
}

// Closed сообщает, закрыта ли сессия.
func (s *Session) Closed() bool {
	return s.closed.Load()
}
