package twilio_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // Twilio signs webhooks with HMAC-SHA1
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/participa/internal/messenger"
	"github.com/gosuda/participa/internal/messenger/twilio"
)

// --- helpers ---

type recordingInbound struct {
	got   []messenger.InboundMessage
	reply string
	err   error
}

func (r *recordingInbound) HandleInbound(_ context.Context, msg messenger.InboundMessage) (string, error) {
	r.got = append(r.got, msg)
	return r.reply, r.err
}

func webhookRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// sign computes the X-Twilio-Signature for a form POST to fullURL.
func sign(authToken, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func defaultForm() url.Values {
	return url.Values{
		"From":        {"whatsapp:+5571999999999"},
		"ProfileName": {"Ana"},
		"Body":        {"Participei: clipe final"},
	}
}

// --- tests ---

func TestHandleWebhook(t *testing.T) {
	t.Parallel()

	t.Run("reply is wrapped in twiml", func(t *testing.T) {
		t.Parallel()

		inbound := &recordingInbound{reply: "registrado"}
		h := twilio.NewHandler(inbound)

		rec := httptest.NewRecorder()
		h.HandleWebhook(rec, webhookRequest(defaultForm()))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "xml")
		assert.Contains(t, rec.Body.String(), "<Response>")
		assert.Contains(t, rec.Body.String(), "<Message>registrado</Message>")

		require.Len(t, inbound.got, 1)
		msg := inbound.got[0]
		assert.Equal(t, "twilio", msg.Platform)
		assert.Equal(t, "whatsapp:+5571999999999", msg.SenderID)
		assert.Equal(t, "whatsapp:+5571999999999", msg.ReplyTo)
		assert.Equal(t, "Ana", msg.DisplayName)
		assert.Equal(t, "Participei: clipe final", msg.Text)
	})

	t.Run("empty reply is no content", func(t *testing.T) {
		t.Parallel()

		h := twilio.NewHandler(&recordingInbound{})

		rec := httptest.NewRecorder()
		h.HandleWebhook(rec, webhookRequest(defaultForm()))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("missing profile name passes empty display name", func(t *testing.T) {
		t.Parallel()

		inbound := &recordingInbound{}
		h := twilio.NewHandler(inbound)

		form := defaultForm()
		form.Del("ProfileName")
		h.HandleWebhook(httptest.NewRecorder(), webhookRequest(form))

		require.Len(t, inbound.got, 1)
		assert.Empty(t, inbound.got[0].DisplayName)
	})

	t.Run("missing sender is rejected", func(t *testing.T) {
		t.Parallel()

		inbound := &recordingInbound{}
		h := twilio.NewHandler(inbound)

		form := defaultForm()
		form.Del("From")
		rec := httptest.NewRecorder()
		h.HandleWebhook(rec, webhookRequest(form))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, inbound.got)
	})

	t.Run("processing error is 500", func(t *testing.T) {
		t.Parallel()

		h := twilio.NewHandler(&recordingInbound{err: errors.New("storage down")})

		rec := httptest.NewRecorder()
		h.HandleWebhook(rec, webhookRequest(defaultForm()))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleWebhook_Signature(t *testing.T) {
	t.Parallel()

	const (
		token   = "twilio-auth-token"
		baseURL = "https://bot.example.com"
	)

	tests := []struct {
		name      string
		signature func(form url.Values) string
		wantCode  int
		wantCalls int
	}{
		{
			name:      "valid signature",
			signature: func(form url.Values) string { return sign(token, baseURL+"/whatsapp", form) },
			wantCode:  http.StatusNoContent,
			wantCalls: 1,
		},
		{
			name:      "wrong token",
			signature: func(form url.Values) string { return sign("other-token", baseURL+"/whatsapp", form) },
			wantCode:  http.StatusForbidden,
		},
		{
			name:      "signed for another url",
			signature: func(form url.Values) string { return sign(token, "https://evil.example.com/whatsapp", form) },
			wantCode:  http.StatusForbidden,
		},
		{
			name:      "missing header",
			signature: func(url.Values) string { return "" },
			wantCode:  http.StatusForbidden,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			inbound := &recordingInbound{}
			h := twilio.NewHandler(inbound, twilio.WithSignatureValidation(token, baseURL))

			form := defaultForm()
			req := webhookRequest(form)
			if sig := tc.signature(form); sig != "" {
				req.Header.Set("X-Twilio-Signature", sig)
			}

			rec := httptest.NewRecorder()
			h.HandleWebhook(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Len(t, inbound.got, tc.wantCalls)
		})
	}
}
