package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "viewing_sessions_active",
		Help: "Открытые сессии просмотра",
	})
	NavigationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_navigations_total",
		Help: "Переходы по ленте",
	}, []string{"direction", "result"})
	GesturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_gestures_total",
		Help: "Жесты по типу и результату распознавания",
	}, []string{"kind", "result"})
	RewardsCredited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rewards_credited_total",
		Help: "Засчитанные просмотры элементов ленты",
	}, []string{"kind"})
	RewardsMinorTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rewards_credited_minor_units_total",
		Help: "Сумма начислений в минимальных единицах",
	}, []string{"currency"})
	MediaErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_media_errors_total",
		Help: "Ошибки воспроизведения, о которых сообщил клиент",
	})
	CreditPublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_credit_publish_failures_total",
		Help: "Ошибки публикации начислений в очередь",
	})
	WalletApplyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_credit_apply_total",
		Help: "Результаты применения начислений к кошелькам",
	}, []string{"result"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SessionsActive,
		NavigationsTotal,
		GesturesTotal,
		RewardsCredited,
		RewardsMinorTotal,
		MediaErrors,
		CreditPublishFailures,
		WalletApplyTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}


// ObserveNavigation учитывает попытку перехода по ленте.
func ObserveNavigation(direction string, accepted bool) {
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	NavigationsTotal.WithLabelValues(direction, result).Inc()
}

// ObserveGesture учитывает результат распознавания жеста.
func ObserveGesture(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	GesturesTotal.WithLabelValues(kind, result).Inc()
}

// ObserveReward учитывает засчитанный элемент и сумму начисления.
func ObserveReward(kind, currency string, minor int64) {
	RewardsCredited.WithLabelValues(kind).Inc()
	if minor > 0 {
		RewardsMinorTotal.WithLabelValues(currency).Add(float64(minor))
	}
}
