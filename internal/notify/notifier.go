package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/participa/internal/domain"
	"github.com/gosuda/participa/internal/messenger"
)

// ErrPlatformNotFound is returned when a messenger platform is not registered.
var ErrPlatformNotFound = errors.New("notify: platform not found") //nolint:gochecknoglobals // sentinel error

// ErrNoRecipient is returned when a notification has no destination.
var ErrNoRecipient = errors.New("notify: recipient is empty") //nolint:gochecknoglobals // sentinel error

// MessengerRegistry maps platform names to Messenger implementations.
type MessengerRegistry interface {
	Get(platform string) (messenger.Messenger, bool)
}

// Notifier delivers text to a single recipient through a registered messenger.
type Notifier struct {
	messengers MessengerRegistry
}

// New creates a new Notifier with the given messenger registry.
func New(messengers MessengerRegistry) *Notifier {
	return &Notifier{messengers: messengers}
}

// NotifyVia sends text to the recipient on the given platform. Blank text is
// not sent. Every failure is logged and returned as *domain.NotificationError.
func (n *Notifier) NotifyVia(ctx context.Context, platform, to, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	err := n.send(ctx, platform, to, text)
	if err != nil {
		log.Error().Err(err).Str("platform", platform).Str("recipient", to).Msg("notification failed")
		return &domain.NotificationError{Platform: platform, Recipient: to, Err: err}
	}

	return nil
}

func (n *Notifier) send(ctx context.Context, platform, to, text string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}

	msg, ok := n.messengers.Get(platform)
	if !ok {
		return ErrPlatformNotFound
	}

	id, err := msg.SendMessage(ctx, to, text)
	if err != nil {
		return err
	}

	log.Debug().Str("platform", platform).Str("recipient", to).Str("message_id", string(id)).Msg("notification sent")
	return nil
}
