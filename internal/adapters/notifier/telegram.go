// Package notifier отправляет операторские уведомления в Telegram.
package notifier

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"adzopay/internal/domain"
	"adzopay/internal/infra/metrics"
)

// Sender покрывает часть tgbotapi.BotAPI, нужную уведомителю.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram пишет в один операторский чат.
type Telegram struct {
	sender Sender
	chatID int64
	log    zerolog.Logger
}

var _ domain.Notifier = (*Telegram)(nil)

// NewTelegram создаёт уведомитель поверх готового клиента бота.
func NewTelegram(sender Sender, chatID int64, log zerolog.Logger) *Telegram {
	return &Telegram{sender: sender, chatID: chatID, log: log}
}

// NewBot авторизует бота по токену.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return bot, nil
}

// NotifyGoalReached сообщает, что кошелёк пользователя достиг цели.
func (t *Telegram) NotifyGoalReached(ctx context.Context, wallet domain.Wallet, goal domain.Money) error {
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 Цель достигнута\n")
	fmt.Fprintf(&b, "Пользователь: %s\n", wallet.UserID)
	fmt.Fprintf(&b, "Баланс: %s из %s\n", wallet.Balance, goal)
	fmt.Fprintf(&b, "Просмотрено реклам: %d", wallet.AdsWatched)
	return t.send(ctx, b.String())
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	_, err := t.sender.Send(tgbotapi.NewMessage(t.chatID, text))
	metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(t.chatID, 10), start, err)
	if err != nil {
		t.log.Error().Err(err).Int64("chat_id", t.chatID).Msg("не удалось отправить уведомление")
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
