package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/participa/internal/messenger"
)

// retryHeader is set by Slack on redelivered events.
const retryHeader = "X-Slack-Retry-Num"

// Replier delivers reply text back to a Slack conversation.
// *notify.Notifier satisfies this interface.
type Replier interface {
	NotifyVia(ctx context.Context, platform, to, text string) error
}

// UserDirectory resolves Slack user IDs to profiles.
// *slack.Client satisfies this interface.
type UserDirectory interface {
	GetUserInfo(user string) (*slacklib.User, error)
}

// Handler processes Slack Events API webhooks.
type Handler struct {
	signingSecret string
	inbound       messenger.InboundHandler
	replier       Replier
	users         UserDirectory
}

// NewHandler creates a new Slack webhook handler. users may be nil, in which
// case the user ID doubles as the display name.
func NewHandler(signingSecret string, inbound messenger.InboundHandler, replier Replier, users UserDirectory) *Handler {
	return &Handler{
		signingSecret: signingSecret,
		inbound:       inbound,
		replier:       replier,
		users:         users,
	}
}

// slackEvent represents the outer envelope of Slack Events API payloads.
type slackEvent struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
}

// innerEvent represents the inner event within an event_callback.
type innerEvent struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype,omitempty"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
	User    string `json:"user"`
	BotID   string `json:"bot_id,omitempty"`
}

// HandleEvents is an http.HandlerFunc for POST /slack/events.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if verifyErr := h.verifySignature(r.Header, body); verifyErr != nil {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var envelope slackEvent
	if unmarshalErr := json.Unmarshal(body, &envelope); unmarshalErr != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	switch envelope.Type {
	case "url_verification":
		h.handleURLVerification(w, envelope.Challenge)
		return
	case "event_callback":
		if r.Header.Get(retryHeader) != "" {
			// The first delivery was already processed; a second run would record twice.
			w.WriteHeader(http.StatusOK)
			return
		}
		h.handleEventCallback(r.Context(), w, envelope.Event)
		return
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// handleURLVerification responds to Slack's URL verification challenge.
func (h *Handler) handleURLVerification(w http.ResponseWriter, challenge string) {
	w.Header().Set("Content-Type", "application/json")

	resp := map[string]string{"challenge": challenge}
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		log.Error().Err(encodeErr).Msg("encode url verification response")
	}
}

// handleEventCallback processes an event_callback payload. Slack always gets a
// 200 so it does not redeliver; failures are logged.
func (h *Handler) handleEventCallback(ctx context.Context, w http.ResponseWriter, rawEvent json.RawMessage) {
	var evt innerEvent
	if unmarshalErr := json.Unmarshal(rawEvent, &evt); unmarshalErr != nil {
		http.Error(w, "invalid event JSON", http.StatusBadRequest)
		return
	}

	// Only handle plain human messages.
	if evt.Type != "message" || evt.Subtype != "" || evt.BotID != "" || evt.User == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	msg := messenger.InboundMessage{
		Platform:    Platform,
		SenderID:    evt.User,
		DisplayName: h.displayName(evt.User),
		Text:        evt.Text,
		ReplyTo:     evt.Channel,
	}

	reply, err := h.inbound.HandleInbound(ctx, msg)
	if err != nil {
		log.Error().Err(err).Str("sender_id", evt.User).Msg("dispatch slack event")
		w.WriteHeader(http.StatusOK)
		return
	}

	if reply != "" {
		if replyErr := h.replier.NotifyVia(ctx, Platform, evt.Channel, reply); replyErr != nil {
			log.Error().Err(replyErr).Str("channel", evt.Channel).Msg("reply to slack event")
		}
	}

	w.WriteHeader(http.StatusOK)
}

// displayName prefers the profile display name, then the real name, then the
// handle. Lookup failures return an empty name.
func (h *Handler) displayName(userID string) string {
	if h.users == nil {
		return ""
	}

	user, err := h.users.GetUserInfo(userID)
	if err != nil || user == nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("resolve slack display name")
		return ""
	}

	for _, name := range []string{user.Profile.DisplayName, user.Profile.RealName, user.RealName, user.Name} {
		if name != "" {
			return name
		}
	}
	return ""
}

// verifySignature validates the Slack request signature using the signing secret.
func (h *Handler) verifySignature(header http.Header, body []byte) error {
	sv, err := slacklib.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return fmt.Errorf("slack.Handler.verifySignature: create verifier: %w", err)
	}

	if _, writeErr := sv.Write(body); writeErr != nil {
		return fmt.Errorf("slack.Handler.verifySignature: write body: %w", writeErr)
	}

	if ensureErr := sv.Ensure(); ensureErr != nil {
		return fmt.Errorf("slack.Handler.verifySignature: ensure: %w", ensureErr)
	}

	return nil
}
