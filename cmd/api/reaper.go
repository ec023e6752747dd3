package main

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type idleReaper interface {
	ReapIdle(now time.Time) int
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg("reaper: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("reaper: " + msg)
}

// startReaper закрывает простаивающие сессии по расписанию schedule.
// Запуск пропускается, если предыдущий ещё не закончился.
func startReaper(schedule string, sessions idleReaper, logger zerolog.Logger) (*cron.Cron, error) {
	clog := cronLogger{log: logger}
	c := cron.New(cron.WithLogger(clog), cron.WithChain(cron.SkipIfStillRunning(clog)))
	_, err := c.AddFunc(schedule, func() {
		if n := sessions.ReapIdle(time.Now()); n > 0 {
			logger.Info().Int("sessions", n).Msg("reaper: закрыты простаивающие сессии")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("reaper schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
