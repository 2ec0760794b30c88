package slack_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	slacklib "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/participa/internal/messenger"
	participaslack "github.com/gosuda/participa/internal/messenger/slack"
)

const testSigningSecret = "test-signing-secret-12345"

// --- mocks ---

type mockInbound struct {
	calls []messenger.InboundMessage
	reply string
	err   error
}

func (m *mockInbound) HandleInbound(_ context.Context, msg messenger.InboundMessage) (string, error) {
	m.calls = append(m.calls, msg)
	return m.reply, m.err
}

type replyCall struct {
	platform string
	to       string
	text     string
}

type mockReplier struct {
	calls []replyCall
	err   error
}

func (m *mockReplier) NotifyVia(_ context.Context, platform, to, text string) error {
	m.calls = append(m.calls, replyCall{platform: platform, to: to, text: text})
	return m.err
}

type mockUsers struct {
	user *slacklib.User
	err  error
}

func (m *mockUsers) GetUserInfo(string) (*slacklib.User, error) {
	return m.user, m.err
}

// --- signature helpers ---

// computeSlackSignature computes a valid Slack request signature for the given body and timestamp.
func computeSlackSignature(secret, timestamp, body string) string {
	sigBase := fmt.Sprintf("v0:%s:%s", timestamp, body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sigBase))
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func signedJSONRequest(body string) *http.Request {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := computeSlackSignature(testSigningSecret, ts, body)

	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", sig)

	return req
}

func messageEvent(fields string) string {
	return `{"type":"event_callback","event":{"type":"message","channel":"C123",` + fields + `}}`
}

// --- tests ---

func TestHandleEvents(t *testing.T) {
	t.Parallel()

	t.Run("url_verification challenge", func(t *testing.T) {
		t.Parallel()

		inbound := &mockInbound{}
		handler := participaslack.NewHandler(testSigningSecret, inbound, &mockReplier{}, nil)

		body := `{"type":"url_verification","challenge":"test-challenge-xyz"}`
		rec := httptest.NewRecorder()
		handler.HandleEvents(rec, signedJSONRequest(body))

		assert.Equal(t, http.StatusOK, rec.Code)

		var result map[string]string
		err := json.Unmarshal(rec.Body.Bytes(), &result)
		require.NoError(t, err)
		assert.Equal(t, "test-challenge-xyz", result["challenge"])
		assert.Empty(t, inbound.calls, "url_verification should not dispatch")
	})

	t.Run("message dispatches and reply goes to the channel", func(t *testing.T) {
		t.Parallel()

		inbound := &mockInbound{reply: "✅ registrado"}
		replier := &mockReplier{}
		users := &mockUsers{user: &slacklib.User{ID: "U123", Name: "ana.s", Profile: slacklib.UserProfile{DisplayName: "Ana"}}}
		handler := participaslack.NewHandler(testSigningSecret, inbound, replier, users)

		rec := httptest.NewRecorder()
		handler.HandleEvents(rec, signedJSONRequest(messageEvent(`"text":"participei: live","user":"U123"`)))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, inbound.calls, 1)
		msg := inbound.calls[0]
		assert.Equal(t, "slack", msg.Platform)
		assert.Equal(t, "U123", msg.SenderID)
		assert.Equal(t, "Ana", msg.DisplayName)
		assert.Equal(t, "participei: live", msg.Text)
		assert.Equal(t, "C123", msg.ReplyTo)

		require.Len(t, replier.calls, 1)
		assert.Equal(t, replyCall{platform: "slack", to: "C123", text: "✅ registrado"}, replier.calls[0])
	})

	t.Run("empty reply sends nothing", func(t *testing.T) {
		t.Parallel()

		inbound := &mockInbound{}
		replier := &mockReplier{}
		handler := participaslack.NewHandler(testSigningSecret, inbound, replier, nil)

		rec := httptest.NewRecorder()
		handler.HandleEvents(rec, signedJSONRequest(messageEvent(`"text":"oi","user":"U123"`)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, inbound.calls, 1)
		assert.Empty(t, replier.calls)
	})

	t.Run("display name falls back through profile fields", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name  string
			users participaslack.UserDirectory
			want  string
		}{
			{name: "real name", users: &mockUsers{user: &slacklib.User{Profile: slacklib.UserProfile{RealName: "Ana Souza"}}}, want: "Ana Souza"},
			{name: "handle", users: &mockUsers{user: &slacklib.User{Name: "ana.s"}}, want: "ana.s"},
			{name: "lookup error", users: &mockUsers{err: errors.New("user_not_found")}, want: ""},
			{name: "no directory", users: nil, want: ""},
		}

		for _, tc := range tests {
			inbound := &mockInbound{}
			handler := participaslack.NewHandler(testSigningSecret, inbound, &mockReplier{}, tc.users)
			handler.HandleEvents(httptest.NewRecorder(), signedJSONRequest(messageEvent(`"text":"gravei","user":"U9"`)))

			require.Len(t, inbound.calls, 1, tc.name)
			assert.Equal(t, tc.want, inbound.calls[0].DisplayName, tc.name)
		}
	})

	t.Run("ignored events", func(t *testing.T) {
		t.Parallel()

		bodies := map[string]string{
			"non-message event": `{"type":"event_callback","event":{"type":"reaction_added","user":"U123"}}`,
			"bot message":       messageEvent(`"text":"participei","user":"U123","bot_id":"B1"`),
			"edited message":    messageEvent(`"text":"participei","user":"U123","subtype":"message_changed"`),
			"no user":           messageEvent(`"text":"participei"`),
			"unknown envelope":  `{"type":"app_rate_limited"}`,
		}

		for name, body := range bodies {
			inbound := &mockInbound{}
			handler := participaslack.NewHandler(testSigningSecret, inbound, &mockReplier{}, nil)

			rec := httptest.NewRecorder()
			handler.HandleEvents(rec, signedJSONRequest(body))

			assert.Equal(t, http.StatusOK, rec.Code, name)
			assert.Empty(t, inbound.calls, name)
		}
	})

	t.Run("redelivery is acknowledged without processing", func(t *testing.T) {
		t.Parallel()

		inbound := &mockInbound{}
		handler := participaslack.NewHandler(testSigningSecret, inbound, &mockReplier{}, nil)

		req := signedJSONRequest(messageEvent(`"text":"participei","user":"U123"`))
		req.Header.Set("X-Slack-Retry-Num", "1")
		rec := httptest.NewRecorder()
		handler.HandleEvents(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, inbound.calls)
	})

	t.Run("processing and reply errors still return 200", func(t *testing.T) {
		t.Parallel()

		for _, tc := range []struct {
			inbound *mockInbound
			replier *mockReplier
		}{
			{inbound: &mockInbound{err: errors.New("storage down")}, replier: &mockReplier{}},
			{inbound: &mockInbound{reply: "ok"}, replier: &mockReplier{err: errors.New("channel_not_found")}},
		} {
			handler := participaslack.NewHandler(testSigningSecret, tc.inbound, tc.replier, nil)

			rec := httptest.NewRecorder()
			handler.HandleEvents(rec, signedJSONRequest(messageEvent(`"text":"participei","user":"U123"`)))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("missing signature returns 401", func(t *testing.T) {
		t.Parallel()

		inbound := &mockInbound{}
		handler := participaslack.NewHandler(testSigningSecret, inbound, &mockReplier{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(messageEvent(`"user":"U1"`)))
		rec := httptest.NewRecorder()
		handler.HandleEvents(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, inbound.calls)
	})

	t.Run("invalid signature returns 401", func(t *testing.T) {
		t.Parallel()

		inbound := &mockInbound{}
		handler := participaslack.NewHandler(testSigningSecret, inbound, &mockReplier{}, nil)

		body := messageEvent(`"text":"participei","user":"U1"`)
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
		req.Header.Set("X-Slack-Request-Timestamp", ts)
		req.Header.Set("X-Slack-Signature", computeSlackSignature("wrong-secret", ts, body))
		rec := httptest.NewRecorder()
		handler.HandleEvents(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, inbound.calls)
	})

	t.Run("malformed JSON returns 400", func(t *testing.T) {
		t.Parallel()

		handler := participaslack.NewHandler(testSigningSecret, &mockInbound{}, &mockReplier{}, nil)

		rec := httptest.NewRecorder()
		handler.HandleEvents(rec, signedJSONRequest(`{not json`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
