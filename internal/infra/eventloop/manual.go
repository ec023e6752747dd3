package eventloop

import (
	"context"
	"sync"
	"time"
)

// Manual — цикл с управляемым временем. Колбэки срабатывают только внутри Advance,
// в порядке наступления срока. Используется в тестах и для воспроизводимых прогонов.
type Manual struct {
	mu     sync.Mutex
	exec   sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
	closed bool
}

type manualTimer struct {
	owner   *Manual
	due     time.Time
	period  time.Duration
	seq     uint64
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() {
	t.owner.mu.Lock()
	t.stopped = true
	t.owner.mu.Unlock()
}

// NewManual создаёт цикл с начальным временем start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now возвращает текущее симулированное время.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Do выполняет fn немедленно, но последовательно с остальными колбэками.
func (m *Manual) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.exec.Lock()
	defer m.exec.Unlock()
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrClosed
	}
	fn()
	return nil
}

// AfterFunc планирует fn через d симулированного времени.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	return m.schedule(d, 0, fn)
}

// Every планирует fn каждые d симулированного времени.
func (m *Manual) Every(d time.Duration, fn func()) Timer {
	if d <= 0 {
		d = time.Millisecond
	}
	return m.schedule(d, d, fn)
}

func (m *Manual) schedule(d, period time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{owner: m, due: m.now.Add(d), period: period, seq: m.seq, fn: fn, stopped: m.closed}
	if !m.closed {
		m.timers = append(m.timers, t)
	}
	return t
}

// Advance сдвигает время на d и выполняет все наступившие колбэки.
// Каждый колбэк видит Now, равное своему сроку.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		m.exec.Lock()
		m.mu.Lock()
		run := !t.stopped && !m.closed
		m.mu.Unlock()
		if run {
			t.fn()
		}
		m.exec.Unlock()
	}
	m.mu.Lock()
	if m.now.Before(target) {
		m.now = target
	}
	m.mu.Unlock()
}

// nextDue извлекает ближайший таймер со сроком не позже target и сдвигает время к нему.
func (m *Manual) nextDue(target time.Time) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	live := m.timers[:0]
	for _, t := range m.timers {
		if t.stopped {
			continue
		}
		live = append(live, t)
	}
	m.timers = live
	for i, t := range m.timers {
		if t.due.After(target) {
			continue
		}
		if idx < 0 || t.due.Before(m.timers[idx].due) || (t.due.Equal(m.timers[idx].due) && t.seq < m.timers[idx].seq) {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	t := m.timers[idx]
	if t.due.After(m.now) {
		m.now = t.due
	}
	if t.period > 0 {
		m.seq++
		t.due = t.due.Add(t.period)
		t.seq = m.seq
		return t
	}
	m.timers = append(m.timers[:idx], m.timers[idx+1:]...)
	return t
}

// Pending возвращает количество активных таймеров.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Close останавливает все таймеры. Последующие Do возвращают ErrClosed.
func (m *Manual) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, t := range m.timers {
		t.stopped = true
	}
	m.timers = nil
}
