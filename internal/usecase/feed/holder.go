// Package feed хранит упорядоченную ленту и текущую позицию просмотра.
package feed

import (
	"errors"
	"fmt"
	"time"

	"adzopay/internal/domain"
	"adzopay/internal/infra/eventloop"
)

var (
	// ErrEmptyFeed возвращается при создании держателя пустой ленты.
	ErrEmptyFeed = errors.New("feed is empty")
	// ErrDuplicateItem возвращается, если идентификаторы элементов повторяются.
	ErrDuplicateItem = errors.New("duplicate feed item")
	// ErrTransitioning возвращается, пока предыдущий переход не завершился.
	ErrTransitioning = errors.New("navigation in progress")
	// ErrUnknownItem возвращается для идентификатора не из этой ленты.
	ErrUnknownItem = errors.New("unknown feed item")
)

const (
	// DefaultCadence — количество роликов между рекламными вставками.
	DefaultCadence = 2
	// DefaultSettleDelay задаёт, сколько после перехода отклоняются новые переходы.
	DefaultSettleDelay = 300 * time.Millisecond
)

// Direction задаёт направление перехода.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

func (d Direction) String() string {
	if d == Backward {
		return "prev"
	}
	return "next"
}

// WatchedSet сообщает, засчитан ли элемент.
type WatchedSet interface {
	IsWatched(itemID string) bool
}

// Build собирает ленту: ролики в исходном порядке и одна реклама после каждых cadence роликов,
// пока реклама не закончится. Лента без роликов состоит только из рекламы.
func Build(videos, ads []domain.FeedItem, cadence int) ([]domain.FeedItem, error) {
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	var items []domain.FeedItem
	if len(videos) == 0 {
		items = append(items, ads...)
	} else {
		items = make([]domain.FeedItem, 0, len(videos)+len(ads))
		next := 0
		for i, v := range videos {
			items = append(items, v)
			if (i+1)%cadence == 0 && next < len(ads) {
				items = append(items, ads[next])
				next++
			}
		}
	}
	if _, err := indexItems(items); err != nil {
		return nil, err
	}
	return items, nil
}

func indexItems(items []domain.FeedItem) (map[string]int, error) {
	index := make(map[string]int, len(items))
	for i, item := range items {
		id := item.ID()
		if id == "" {
			return nil, fmt.Errorf("элемент %d без идентификатора: %w", i, ErrUnknownItem)
		}
		if _, ok := index[id]; ok {
			return nil, fmt.Errorf("%s: %w", id, ErrDuplicateItem)
		}
		index[id] = i
	}
	return index, nil
}

// Holder хранит ленту, позицию и лайки одной сессии.
// Методы вызываются только из колбэков цикла сессии.
type Holder struct {
	loop    eventloop.Loop
	items   []domain.FeedItem
	index   map[string]int
	watched WatchedSet
	settle  time.Duration

	position      int
	transitioning bool
	settleTimer   eventloop.Timer
	liked         map[string]struct{}
}

// NewHolder создаёт держатель ленты. Порядок items дальше не меняется.
func NewHolder(loop eventloop.Loop, items []domain.FeedItem, watched WatchedSet, settle time.Duration) (*Holder, error) {
	if len(items) == 0 {
		return nil, ErrEmptyFeed
	}
	index, err := indexItems(items)
	if err != nil {
		return nil, err
	}
	return &Holder{
		loop:    loop,
		items:   append([]domain.FeedItem(nil), items...),
		index:   index,
		watched: watched,
		settle:  settle,
		liked:   make(map[string]struct{}),
	}, nil
}

// Advance переходит на соседний элемент по кругу. Во время перехода вызов отклоняется.
func (h *Holder) Advance(dir Direction) (domain.FeedItem, error) {
	if h.transitioning {
		return h.Current(), ErrTransitioning
	}
	step := 1
	if dir == Backward {
		step = -1
	}
	n := len(h.items)
	h.position = ((h.position+step)%n + n) % n
	if h.settle > 0 {
		h.transitioning = true
		h.settleTimer = h.loop.AfterFunc(h.settle, func() {
			h.transitioning = false
			h.settleTimer = nil
		})
	}
	return h.Current(), nil
}

// Transitioning сообщает, идёт ли переход.
func (h *Holder) Transitioning() bool {
	return h.transitioning
}

// Current возвращает текущий элемент.
func (h *Holder) Current() domain.FeedItem {
	return h.items[h.position]
}

// Position возвращает индекс текущего элемента.
func (h *Holder) Position() int {
	return h.position
}

// Len возвращает длину ленты.
func (h *Holder) Len() int {
	return len(h.items)
}

// Items возвращает копию ленты.
func (h *Holder) Items() []domain.FeedItem {
	return append([]domain.FeedItem(nil), h.items...)
}

// Item возвращает элемент по идентификатору.
func (h *Holder) Item(id string) (domain.FeedItem, bool) {
	i, ok := h.index[id]
	if !ok {
		return domain.FeedItem{}, false
	}
	return h.items[i], true
}

// IsWatched сообщает, засчитан ли элемент.
func (h *Holder) IsWatched(id string) bool {
	if h.watched == nil {
		return false
	}
	return h.watched.IsWatched(id)
}

// ToggleLike переключает лайк текущего элемента и возвращает новое состояние.
func (h *Holder) ToggleLike() bool {
	liked, _ := h.ToggleLikeItem(h.Current().ID())
	return liked
}

// ToggleLikeItem переключает лайк элемента по идентификатору.
func (h *Holder) ToggleLikeItem(id string) (bool, error) {
	if _, ok := h.index[id]; !ok {
		return false, ErrUnknownItem
	}
	if _, ok := h.liked[id]; ok {
		delete(h.liked, id)
		return false, nil
	}
	h.liked[id] = struct{}{}
	return true, nil
}

// IsLiked сообщает, отмечен ли элемент.
func (h *Holder) IsLiked(id string) bool {
	_, ok := h.liked[id]
	return ok
}

// Liked возвращает отмеченные элементы в порядке ленты.
func (h *Holder) Liked() []string {
	out := make([]string, 0, len(h.liked))
	for _, item := range h.items {
		if _, ok := h.liked[item.ID()]; ok {
			out = append(out, item.ID())
		}
	}
	return out
}

// Close отменяет таймер завершения перехода.
func (h *Holder) Close() {
	if h.settleTimer != nil {
		h.settleTimer.Stop()
		h.settleTimer = nil
	}
}
