package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"adzopay/internal/domain"
)

type stubSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *stubSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	s.sent = append(s.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestNotifyGoalReached(t *testing.T) {
	sender := &stubSender{}
	n := NewTelegram(sender, 42, zerolog.Nop())
	wallet := domain.Wallet{UserID: "u-1", Balance: domain.NewMoney(512, "USD"), AdsWatched: 19}

	if err := n.NotifyGoalReached(context.Background(), wallet, domain.NewMoney(500, "USD")); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("ожидали одно сообщение, получили %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.ChatID != 42 {
		t.Fatalf("сообщение ушло в чат %d", msg.ChatID)
	}
	for _, want := range []string{"u-1", "5.12", "5.00", "19"} {
		if !strings.Contains(msg.Text, want) {
			t.Fatalf("в тексте %q нет %q", msg.Text, want)
		}
	}
}

func TestNotifySendError(t *testing.T) {
	sender := &stubSender{err: errors.New("flood wait")}
	n := NewTelegram(sender, 1, zerolog.Nop())
	if err := n.NotifyGoalReached(context.Background(), domain.Wallet{}, domain.Money{}); err == nil {
		t.Fatal("ожидали ошибку отправки")
	}
}

func TestNotifySkipsCancelledContext(t *testing.T) {
	sender := &stubSender{}
	n := NewTelegram(sender, 1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.NotifyGoalReached(ctx, domain.Wallet{UserID: "u-1"}, domain.Money{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("ожидали context.Canceled, получили %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("после отмены сообщение не должно уходить")
	}
}
