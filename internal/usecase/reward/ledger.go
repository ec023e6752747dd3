// Package reward засчитывает просмотр элементов ленты и ведёт сумму начислений сессии.
package reward

import (
	"adzopay/internal/domain"
)

// Ledger хранит множество засчитанных элементов и накопленную сумму.
// Элемент засчитывается не более одного раза.
type Ledger struct {
	watched map[string]struct{}
	order   []string
	total   domain.Money
}

// NewLedger создаёт пустой журнал в валюте currency.
func NewLedger(currency string) *Ledger {
	return &Ledger{
		watched: make(map[string]struct{}),
		total:   domain.NewMoney(0, currency),
	}
}

// IsWatched сообщает, засчитан ли элемент.
func (l *Ledger) IsWatched(itemID string) bool {
	_, ok := l.watched[itemID]
	return ok
}

// Credit засчитывает элемент и прибавляет его вознаграждение.
// Возвращает false, если элемент уже был засчитан; сумма при этом не меняется.
func (l *Ledger) Credit(item domain.FeedItem) (bool, error) {
	id := item.ID()
	if l.IsWatched(id) {
		return false, nil
	}
	total, err := l.total.Add(item.Reward())
	if err != nil {
		return false, err
	}
	l.total = total
	l.watched[id] = struct{}{}
	l.order = append(l.order, id)
	return true, nil
}

// Total возвращает накопленную сумму.
func (l *Ledger) Total() domain.Money {
	return l.total
}

// Count возвращает количество засчитанных элементов.
func (l *Ledger) Count() int {
	return len(l.order)
}

// Watched возвращает засчитанные элементы в порядке засчитывания.
func (l *Ledger) Watched() []string {
	return append([]string(nil), l.order...)
}
