package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"adzopay/internal/domain"
	"adzopay/internal/infra/cache"
)

type providerStub struct {
	users    map[string]domain.User
	calls    int
	signOuts []string
	failOut  error
}

func (p *providerStub) CurrentUser(_ context.Context, token string) (domain.User, error) {
	p.calls++
	user, ok := p.users[token]
	if !ok {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return user, nil
}

func (p *providerStub) SignOut(_ context.Context, token string) error {
	p.signOuts = append(p.signOuts, token)
	return p.failOut
}

func TestResolveCachesUser(t *testing.T) {
	provider := &providerStub{users: map[string]domain.User{"t1": {ID: "u1", Email: "u1@example.com"}}}
	h := NewHolder(provider, cache.NewMemory(), time.Minute, zerolog.Nop())

	for i := 0; i < 3; i++ {
		user, err := h.Resolve(context.Background(), "t1")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if user.ID != "u1" {
			t.Fatalf("неожиданный пользователь: %+v", user)
		}
	}
	if provider.calls != 1 {
		t.Fatalf("провайдер вызван %d раз, ожидали 1", provider.calls)
	}
}

func TestResolveRejectsUnknownToken(t *testing.T) {
	h := NewHolder(&providerStub{}, nil, 0, zerolog.Nop())
	if _, err := h.Resolve(context.Background(), "nope"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("ожидали ErrUnauthenticated, получили %v", err)
	}
	if _, err := h.Resolve(context.Background(), ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("пустой токен: %v", err)
	}
}

func TestSignOutNotifiesSubscribers(t *testing.T) {
	provider := &providerStub{
		users:   map[string]domain.User{"t1": {ID: "u1"}},
		failOut: errors.New("provider down"),
	}
	h := NewHolder(provider, cache.NewMemory(), time.Minute, zerolog.Nop())

	var got []Event
	unsubscribe := h.Subscribe(func(ev Event) { got = append(got, ev) })

	if _, err := h.Resolve(context.Background(), "t1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	user, err := h.SignOut(context.Background(), "t1")
	if err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if user.ID != "u1" || len(provider.signOuts) != 1 {
		t.Fatalf("user=%+v signOuts=%v", user, provider.signOuts)
	}
	if len(got) != 2 || got[0].Type != EventSignedIn || got[1].Type != EventSignedOut || got[1].User.ID != "u1" {
		t.Fatalf("неожиданные события: %+v", got)
	}

	// После выхода кэш сброшен, поэтому следующий Resolve снова обращается к провайдеру.
	callsBefore := provider.calls
	if _, err := h.Resolve(context.Background(), "t1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if provider.calls != callsBefore+1 {
		t.Fatal("кэш должен сбрасываться при выходе")
	}

	unsubscribe()
	unsubscribe()
	if _, err := h.SignOut(context.Background(), "t1"); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("после отписки события не должны приходить, получили %d", len(got))
	}
}
