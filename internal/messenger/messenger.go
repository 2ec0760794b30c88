package messenger

import "context"

// MessageID uniquely identifies a message within a messenger platform.
type MessageID string

// Messenger abstracts outbound delivery to a chat platform (Twilio WhatsApp, Slack).
// Implementations own the platform-specific sender identity.
type Messenger interface {
	// SendMessage delivers text to a single recipient and returns its platform message ID.
	SendMessage(ctx context.Context, to, text string) (MessageID, error)

	// Platform returns the messenger platform identifier (e.g. "twilio", "slack").
	Platform() string
}

// InboundMessage is a platform-neutral view of one message received by a webhook.
type InboundMessage struct {
	Platform    string
	SenderID    string // opaque sender identity, e.g. "whatsapp:+5571..." or a Slack user ID
	DisplayName string // empty when the platform provides none
	Text        string
	ReplyTo     string // where an out-of-band reply goes; the sender for direct channels
}

// InboundHandler turns an inbound message into reply text. An empty reply means
// the transport must acknowledge without sending anything.
type InboundHandler interface {
	HandleInbound(ctx context.Context, msg InboundMessage) (string, error)
}

// InboundHandlerFunc adapts a plain function to InboundHandler.
type InboundHandlerFunc func(ctx context.Context, msg InboundMessage) (string, error)

// HandleInbound calls f.
func (f InboundHandlerFunc) HandleInbound(ctx context.Context, msg InboundMessage) (string, error) {
	return f(ctx, msg)
}
