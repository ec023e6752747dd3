// Package eventloop содержит однопоточный цикл событий сессии просмотра.
//
// Все колбэки одного Loop выполняются последовательно, поэтому состояние,
// к которому обращаются только из колбэков, не требует дополнительной синхронизации.
package eventloop

import (
	"context"
	"errors"
	"time"
)

// ErrClosed возвращается при обращении к закрытому циклу.
var ErrClosed = errors.New("event loop closed")

// Loop выполняет колбэки последовательно и предоставляет часы и таймеры.
//
// Do нельзя вызывать из колбэка того же цикла. Если Do вернул ошибку
// контекста, fn не выполнялся и уже не выполнится.
type Loop interface {
	Now() time.Time
	Do(ctx context.Context, fn func()) error
	AfterFunc(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
	Close()
}

// Timer отменяет отложенный или периодический колбэк.
// После Stop колбэк гарантированно больше не выполнится.
type Timer interface {
	Stop()
}
