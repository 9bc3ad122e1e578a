package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/sitecraft/pkg/logging"
)

const defaultFromName = "Sitecraft Studio"

// EmailSender delivers notification emails.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one outgoing notification.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	ReplyTo string
	Body    string
	HTML    string
	// Kind labels the notification (lead_created, client_message,
	// admin_message). Providers that support tagging receive it.
	Kind string
}

// PermanentError marks a delivery the provider rejected for good, such as a
// malformed recipient. The worker acknowledges these instead of retrying.
type PermanentError struct {
	Provider string
	Err      error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("notify: %s rejected message: %v", e.Provider, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanent reports whether err wraps a *PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// StubEmailSender logs instead of sending; used when no provider is configured.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("email disabled, dropping notification", "kind", msg.Kind, "to", msg.To, "subject", msg.Subject)
	return nil
}
