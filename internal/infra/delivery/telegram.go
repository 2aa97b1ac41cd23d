package delivery

import (
	"context"
	"fmt"

	"physician_credential_tracker/internal/domain/delivery"

	"gopkg.in/telebot.v3"
)

// TelegramSender posts every notification to a single alert chat (e.g. the
// credentialing team's channel) via the gopkg.in/telebot.v3 library.
type TelegramSender struct {
	bot         *telebot.Bot
	alertChatID int64
}

func NewTelegramSender(b *telebot.Bot, alertChatID int64) *TelegramSender {
	return &TelegramSender{bot: b, alertChatID: alertChatID}
}

func (s *TelegramSender) Send(_ context.Context, msg delivery.Message) error {
	recipient := &telebot.Chat{ID: s.alertChatID}
	text := fmt.Sprintf("%s\n\n%s", msg.Subject, msg.Body)
	_, err := s.bot.Send(recipient, text, &telebot.SendOptions{})
	return err
}
