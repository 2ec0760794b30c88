package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/participa/internal/domain"
	"github.com/gosuda/participa/internal/messenger"
	"github.com/gosuda/participa/internal/notify"
)

// --- mocks ---

type mockMessenger struct {
	platform string
	sent     []sentMessage
	sendErr  error
}

type sentMessage struct {
	to   string
	text string
}

func (m *mockMessenger) SendMessage(_ context.Context, to, text string) (messenger.MessageID, error) {
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sent = append(m.sent, sentMessage{to: to, text: text})
	return "msg-1", nil
}

func (m *mockMessenger) Platform() string { return m.platform }

// --- NotifyVia tests ---

func TestNotifyVia(t *testing.T) {
	t.Parallel()

	t.Run("delivers through the platform messenger", func(t *testing.T) {
		t.Parallel()

		twilio := &mockMessenger{platform: "twilio"}
		slack := &mockMessenger{platform: "slack"}
		reg := notify.NewRegistry()
		reg.Register(twilio)
		reg.Register(slack)

		n := notify.New(reg)
		require.NoError(t, n.NotifyVia(context.Background(), "twilio", "whatsapp:+1", "hello"))

		require.Len(t, twilio.sent, 1)
		assert.Equal(t, "whatsapp:+1", twilio.sent[0].to)
		assert.Equal(t, "hello", twilio.sent[0].text)
		assert.Empty(t, slack.sent)
	})

	t.Run("blank text is not sent", func(t *testing.T) {
		t.Parallel()

		m := &mockMessenger{platform: "twilio"}
		reg := notify.NewRegistry()
		reg.Register(m)

		require.NoError(t, notify.New(reg).NotifyVia(context.Background(), "twilio", "whatsapp:+1", "  \n"))
		assert.Empty(t, m.sent)
	})

	errorCases := []struct {
		name    string
		reg     func() *notify.Registry
		to      string
		wantErr error
	}{
		{
			name:    "unknown platform",
			reg:     notify.NewRegistry,
			to:      "whatsapp:+1",
			wantErr: notify.ErrPlatformNotFound,
		},
		{
			name: "empty recipient",
			reg: func() *notify.Registry {
				r := notify.NewRegistry()
				r.Register(&mockMessenger{platform: "twilio"})
				return r
			},
			to:      "",
			wantErr: notify.ErrNoRecipient,
		},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := notify.New(tc.reg()).NotifyVia(context.Background(), "twilio", tc.to, "hello")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)

			var notifyErr *domain.NotificationError
			require.ErrorAs(t, err, &notifyErr)
			assert.Equal(t, "twilio", notifyErr.Platform)
			assert.Equal(t, tc.to, notifyErr.Recipient)
		})
	}

	t.Run("send failure is wrapped", func(t *testing.T) {
		t.Parallel()

		sendErr := errors.New("provider unavailable")
		reg := notify.NewRegistry()
		reg.Register(&mockMessenger{platform: "slack", sendErr: sendErr})

		err := notify.New(reg).NotifyVia(context.Background(), "slack", "C123", "hello")
		require.Error(t, err)
		assert.ErrorIs(t, err, sendErr)
		assert.True(t, domain.IsNotificationError(err))
	})
}
