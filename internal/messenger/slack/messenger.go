package slack

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/participa/internal/messenger"
)

// Platform is the messenger platform identifier for Slack.
const Platform = "slack"

// SlackAPI abstracts the subset of the Slack client used by SlackMessenger.
// This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessage(channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackMessenger implements messenger.Messenger for Slack.
type SlackMessenger struct {
	api SlackAPI
}

// Compile-time interface check.
var _ messenger.Messenger = (*SlackMessenger)(nil) //nolint:gochecknoglobals // compile-time check

// NewSlackMessenger creates a SlackMessenger with the given API client.
func NewSlackMessenger(api SlackAPI) *SlackMessenger {
	return &SlackMessenger{api: api}
}

// SendMessage posts a text message to a Slack channel or user ID and returns the
// message timestamp as MessageID. Posting to a user ID opens a direct message
// from the bot.
func (m *SlackMessenger) SendMessage(_ context.Context, to, text string) (messenger.MessageID, error) {
	_, ts, err := m.api.PostMessage(to, slacklib.MsgOptionText(text, false))
	if err != nil {
		return "", fmt.Errorf("slack.SlackMessenger.SendMessage: %w", err)
	}

	return messenger.MessageID(ts), nil
}

// Platform returns the messenger platform identifier.
func (m *SlackMessenger) Platform() string {
	return Platform
}
