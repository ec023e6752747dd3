package eventloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

const taskBuffer = 64

// Real запускает цикл на отдельной горутине поверх clockwork.Clock.
type Real struct {
	clock clockwork.Clock
	tasks chan func()
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewReal создаёт и запускает цикл. При nil clock используются системные часы.
func NewReal(clock clockwork.Clock) *Real {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	l := &Real{
		clock: clock,
		tasks: make(chan func(), taskBuffer),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Real) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case fn := <-l.tasks:
			select {
			case <-l.quit:
				return
			default:
			}
			fn()
		}
	}
}

func (l *Real) post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case <-l.quit:
		return false
	case l.tasks <- fn:
		return true
	}
}

// Now возвращает текущее время часов цикла.
func (l *Real) Now() time.Time {
	return l.clock.Now()
}

// Do выполняет fn на горутине цикла и дожидается завершения.
// Если ctx истёк раньше, чем цикл взял задачу, fn не выполняется вовсе.
// Уже начатый fn Do дожидается до конца.
func (l *Real) Do(ctx context.Context, fn func()) error {
	var claim atomic.Int32 // 0 ждёт, 1 взят циклом, 2 отменён вызывающим
	finished := make(chan struct{})
	if !l.post(func() {
		defer close(finished)
		if !claim.CompareAndSwap(0, 1) {
			return
		}
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
		}
		return ErrClosed
	case <-ctx.Done():
		if claim.CompareAndSwap(0, 2) {
			return ctx.Err()
		}
		select {
		case <-finished:
			return nil
		case <-l.done:
			return ErrClosed
		}
	}
}

type realTimer struct {
	stopped atomic.Bool
	stop    func()
}

func (t *realTimer) Stop() {
	if t.stopped.CompareAndSwap(false, true) {
		t.stop()
	}
}

// AfterFunc выполняет fn на цикле через d.
func (l *Real) AfterFunc(d time.Duration, fn func()) Timer {
	t := &realTimer{}
	inner := l.clock.AfterFunc(d, func() {
		l.post(func() {
			if t.stopped.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	t.stop = func() { inner.Stop() }
	return t
}

// Every выполняет fn на цикле каждые d до остановки таймера или закрытия цикла.
func (l *Real) Every(d time.Duration, fn func()) Timer {
	t := &realTimer{}
	ticker := l.clock.NewTicker(d)
	stopCh := make(chan struct{})
	t.stop = func() {
		ticker.Stop()
		close(stopCh)
	}
	go func() {
		for {
			select {
			case <-stopCh:
				return
			case <-l.quit:
				ticker.Stop()
				return
			case <-ticker.Chan():
				l.post(func() {
					if !t.stopped.Load() {
						fn()
					}
				})
			}
		}
	}()
	return t
}

// Close останавливает цикл. Ожидающие колбэки отбрасываются.
func (l *Real) Close() {
	l.once.Do(func() {
		close(l.quit)
	})
}

// Done закрывается, когда горутина цикла завершилась.
func (l *Real) Done() <-chan struct{} {
	return l.done
}
