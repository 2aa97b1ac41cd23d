package delivery

import (
	"context"

	"physician_credential_tracker/internal/domain/credential"
)

// Message is a rendered notification ready for hand-off to a transport.
type Message struct {
	PhysicianID string
	Recipient   string // transport-specific address, e.g. an email address
	Subject     string
	Body        string
	Severity    credential.Severity
}

// Sender defines an interface for delivering notification messages. This
// decouples the notification engine from the concrete transport; the engine
// records delivery failures on the notification and never lets them interrupt
// a queue pass.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
