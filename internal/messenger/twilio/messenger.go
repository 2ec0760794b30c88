package twilio

import (
	"context"
	"errors"
	"fmt"

	twiliogo "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/gosuda/participa/internal/messenger"
)

// Platform is the messenger platform identifier for Twilio.
const Platform = "twilio"

// ErrNoSender is returned when no outbound sender identity is configured.
var ErrNoSender = errors.New("twilio: sender identity is empty") //nolint:gochecknoglobals // sentinel error

// MessagesAPI abstracts the subset of the Twilio REST client used by TwilioMessenger.
// This allows testing without real HTTP calls.
type MessagesAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// NewMessagesAPI builds the REST client for the given account.
func NewMessagesAPI(accountSID, authToken string) MessagesAPI {
	client := twiliogo.NewRestClientWithParams(twiliogo.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return client.Api
}

// TwilioMessenger implements messenger.Messenger for Twilio (WhatsApp or SMS).
type TwilioMessenger struct {
	api  MessagesAPI
	from string
}

// Compile-time interface check.
var _ messenger.Messenger = (*TwilioMessenger)(nil) //nolint:gochecknoglobals // compile-time check

// NewTwilioMessenger creates a TwilioMessenger sending as from,
// e.g. "whatsapp:+14155238886".
func NewTwilioMessenger(api MessagesAPI, from string) *TwilioMessenger {
	return &TwilioMessenger{api: api, from: from}
}

// SendMessage creates an outbound message and returns its SID as MessageID.
// The REST client is not context-aware; ctx is only checked before the call.
func (m *TwilioMessenger) SendMessage(ctx context.Context, to, text string) (messenger.MessageID, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("twilio.TwilioMessenger.SendMessage: %w", err)
	}
	if m.from == "" {
		return "", fmt.Errorf("twilio.TwilioMessenger.SendMessage: %w", ErrNoSender)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(m.from)
	params.SetBody(text)

	resp, err := m.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio.TwilioMessenger.SendMessage: %w", err)
	}

	var sid string
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	return messenger.MessageID(sid), nil
}

// Platform returns the messenger platform identifier.
func (m *TwilioMessenger) Platform() string {
	return Platform
}
