package delivery

import (
	"context"

	"physician_credential_tracker/internal/domain/delivery"

	"github.com/sirupsen/logrus"
)

// ConsoleSender writes notifications to the structured log. It is the default
// transport; a real email or SMS transport plugs in behind the same interface.
type ConsoleSender struct {
	log *logrus.Logger
}

func NewConsoleSender(log *logrus.Logger) *ConsoleSender {
	return &ConsoleSender{log: log}
}

func (s *ConsoleSender) Send(_ context.Context, msg delivery.Message) error {
	s.log.WithFields(logrus.Fields{
		"physician_id": msg.PhysicianID,
		"recipient":    msg.Recipient,
		"severity":     msg.Severity,
		"subject":      msg.Subject,
	}).Info(msg.Body)
	return nil
}
