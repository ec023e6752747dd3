package viewing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"adzopay/internal/domain"
	"adzopay/internal/infra/eventloop"
	"adzopay/internal/infra/metrics"
	"adzopay/internal/usecase/auth"
	"adzopay/internal/usecase/balance"
	"adzopay/internal/usecase/feed"
	"adzopay/internal/usecase/gesture"
	"adzopay/internal/usecase/reward"
)

// AdCatalog возвращает рекламу для новой ленты.
type AdCatalog interface {
	Ads(ctx context.Context) ([]domain.Ad, error)
}

// Config задаёт параметры сессий.
type Config struct {
	AdCadence     int
	SettleDelay   time.Duration
	Cooldown      time.Duration
	SwipeDistance float64
	TickInterval  time.Duration
	Goal          domain.Money
	Autoplay      bool
	IdleTTL       time.Duration
	MaxPerUser    int
}

// DefaultConfig возвращает параметры по умолчанию: цель $5.00, вставка рекламы после двух роликов.
func DefaultConfig() Config {
	return Config{
		AdCadence:     feed.DefaultCadence,
		SettleDelay:   feed.DefaultSettleDelay,
		Cooldown:      gesture.DefaultCooldown,
		SwipeDistance: gesture.DefaultMinDistance,
		TickInterval:  reward.DefaultInterval,
		Goal:          domain.NewMoney(500, domain.DefaultCurrency),
		IdleTTL:       30 * time.Minute,
		MaxPerUser:    5,
	}
}

// Deps содержит зависимости менеджера. wallets, credits и analytics могут быть nil.
type Deps struct {
	Videos    domain.VideoRepo
	Ads       AdCatalog
	Media     domain.MediaResolver
	Wallets   domain.WalletRepo
	Credits   domain.CreditSubmitter
	Analytics domain.BusinessMetricRepo
	// NewLoop создаёт цикл для новой сессии. По умолчанию используется eventloop.NewReal.
	NewLoop func() eventloop.Loop
}

// Manager открывает сессии и владеет ими.
type Manager struct {
	deps Deps
	cfg  Config
	log  zerolog.Logger
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager создаёт менеджер сессий.
func NewManager(deps Deps, cfg Config, logger zerolog.Logger) *Manager {
	if deps.NewLoop == nil {
		deps.NewLoop = func() eventloop.Loop { return eventloop.NewReal(nil) }
	}
	return &Manager{
		deps:     deps,
		cfg:      cfg,
		log:      logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open строит ленту для пользователя и открывает сессию.
// Ошибка загрузки роликов не прерывает открытие: лента собирается из одной рекламы.
func (m *Manager) Open(ctx context.Context, user domain.User) (*Session, error) {
	if user.ID == "" {
		return nil, domain.ErrUnauthenticated
	}
	items, err := m.buildFeed(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	loop := m.deps.NewLoop()
	s, err := newSession(sessionParams{
		id:      id,
		user:    user,
		loop:    loop,
		items:   items,
		credits: m.deps.Credits,
		wallet:  m.openingWallet(ctx, user.ID),
		cfg:     m.cfg,
		now:     m.now(),
		log:     m.log.With().Str("session", id).Str("user", user.ID).Logger(),
	})
	if err != nil {
		loop.Close()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	evicted := m.evictOverLimitLocked(user.ID, id)
	m.mu.Unlock()
	metrics.SessionsActive.Inc()
	for _, old := range evicted {
		m.closeSession(old, "limit")
	}

	m.recordOpened(ctx, s, len(items))
	s.log.Info().Int("items", len(items)).Msg("viewing: сессия открыта")
	return s, nil
}

func (m *Manager) buildFeed(ctx context.Context) ([]domain.FeedItem, error) {
	var videoItems []domain.FeedItem
	if m.deps.Videos != nil {
		videos, err := m.deps.Videos.ListVideos(ctx)
		if err != nil {
			m.log.Error().Err(err).Msg("viewing: не удалось загрузить ролики")
		}
		for _, v := range videos {
			videoItems = append(videoItems, domain.VideoItem(v, m.resolve(v.StoragePath)))
		}
	}
	var adItems []domain.FeedItem
	if m.deps.Ads != nil {
		ads, err := m.deps.Ads.Ads(ctx)
		if err != nil {
			return nil, fmt.Errorf("каталог рекламы: %w", err)
		}
		for _, a := range ads {
			if a.Reward.Currency != m.cfg.Goal.Currency {
				return nil, fmt.Errorf("реклама %d в %s, кошелёк в %s: %w", a.ID, a.Reward.Currency, m.cfg.Goal.Currency, domain.ErrCurrencyMismatch)
			}
			a.MediaURL = m.resolve(a.MediaURL)
			adItems = append(adItems, domain.AdItem(a))
		}
	}
	items, err := feed.Build(videoItems, adItems, m.cfg.AdCadence)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, feed.ErrEmptyFeed
	}
	return items, nil
}

func (m *Manager) resolve(path string) string {
	if path == "" || m.deps.Media == nil || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return m.deps.Media.PublicURL(path)
}

func (m *Manager) openingWallet(ctx context.Context, userID string) *WalletView {
	if m.deps.Wallets == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	w, err := m.deps.Wallets.GetWallet(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrWalletNotFound) {
			m.log.Warn().Err(err).Str("user", userID).Msg("viewing: не удалось загрузить кошелёк")
			return nil
		}
		w = domain.Wallet{
			Balance:     domain.NewMoney(0, m.cfg.Goal.Currency),
			TotalEarned: domain.NewMoney(0, m.cfg.Goal.Currency),
		}
	}
	return &WalletView{
		Balance:     balance.Format(w.Balance),
		TotalEarned: balance.Format(w.TotalEarned),
		AdsWatched:  w.AdsWatched,
	}
}

func (m *Manager) recordOpened(ctx context.Context, s *Session, items int) {
	if m.deps.Analytics == nil {
		return
	}
	userID := s.UserID()
	err := m.deps.Analytics.RecordBusinessMetric(ctx, domain.BusinessMetric{
		Event:      domain.BusinessMetricEventSessionOpened,
		UserID:     &userID,
		Metadata:   map[string]any{"session_id": s.ID(), "items": items},
		OccurredAt: s.CreatedAt().UTC(),
	})
	if err != nil {
		m.log.Error().Err(err).Msg("viewing: не удалось сохранить бизнес-метрику")
	}
}

// evictOverLimitLocked убирает из реестра самые давние сессии пользователя сверх лимита.
// Сессия keepID только что открыта и не вытесняется.
func (m *Manager) evictOverLimitLocked(userID, keepID string) []*Session {
	if m.cfg.MaxPerUser <= 0 {
		return nil
	}
	var own []*Session
	for id, s := range m.sessions {
		if s.UserID() == userID && id != keepID {
			own = append(own, s)
		}
	}
	limit := m.cfg.MaxPerUser - 1
	if len(own) <= limit {
		return nil
	}
	sort.Slice(own, func(i, j int) bool {
		return own[i].LastActive().Before(own[j].LastActive())
	})
	evicted := own[:len(own)-limit]
	for _, s := range evicted {
		delete(m.sessions, s.ID())
	}
	return evicted
}

// Get возвращает сессию пользователя. Чужая сессия неотличима от отсутствующей.
func (m *Manager) Get(userID, id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok || s.UserID() != userID || s.Closed() {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close закрывает сессию по идентификатору.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.closeSession(s, "closed")
	return nil
}

// CloseForUser закрывает все сессии пользователя и возвращает их количество.
func (m *Manager) CloseForUser(userID string) int {
	return m.closeWhere("signed_out", func(s *Session) bool { return s.UserID() == userID })
}

// ReapIdle закрывает сессии без обращений дольше IdleTTL.
func (m *Manager) ReapIdle(now time.Time) int {
	if m.cfg.IdleTTL <= 0 {
		return 0
	}
	return m.closeWhere("idle", func(s *Session) bool {
		return now.Sub(s.LastActive()) >= m.cfg.IdleTTL
	})
}

// CloseAll закрывает все сессии при остановке процесса.
func (m *Manager) CloseAll() int {
	return m.closeWhere("shutdown", func(*Session) bool { return true })
}

// Len возвращает количество открытых сессий.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) closeWhere(reason string, match func(*Session) bool) int {
	m.mu.Lock()
	var victims []*Session
	for id, s := range m.sessions {
		if match(s) {
			victims = append(victims, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range victims {
		m.closeSession(s, reason)
	}
	return len(victims)
}

func (m *Manager) closeSession(s *Session, reason string) {
	if s.Closed() {
		return
	}
	s.Close()
	metrics.SessionsActive.Dec()
	s.log.Info().Str("reason", reason).Msg("viewing: сессия закрыта")
}

// HandleAuthEvent закрывает сессии пользователя после выхода.
func (m *Manager) HandleAuthEvent(ev auth.Event) {
	if ev.Type != auth.EventSignedOut {
		return
	}
	if n := m.CloseForUser(ev.User.ID); n > 0 {
		m.log.Info().Str("user", ev.User.ID).Int("sessions", n).Msg("viewing: сессии закрыты после выхода")
	}
}
