package twilio

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"

	"github.com/gosuda/participa/internal/messenger"
)

// Webhook form fields posted by Twilio.
const (
	fieldFrom        = "From"
	fieldProfileName = "ProfileName"
	fieldBody        = "Body"

	signatureHeader = "X-Twilio-Signature"
)

// Handler processes Twilio messaging webhooks.
type Handler struct {
	inbound   messenger.InboundHandler
	validator *client.RequestValidator
	baseURL   string
}

// HandlerOption configures optional Handler parameters.
type HandlerOption func(*Handler)

// WithSignatureValidation enables X-Twilio-Signature checks. baseURL is the
// public scheme and host Twilio posts to, since proxies rewrite the request URL.
func WithSignatureValidation(authToken, baseURL string) HandlerOption {
	return func(h *Handler) {
		v := client.NewRequestValidator(authToken)
		h.validator = &v
		h.baseURL = baseURL
	}
}

// NewHandler creates a new Twilio webhook handler.
func NewHandler(inbound messenger.InboundHandler, opts ...HandlerOption) *Handler {
	h := &Handler{inbound: inbound}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleWebhook is an http.HandlerFunc for POST /whatsapp. A non-empty reply
// is returned as TwiML; an empty reply is acknowledged with 204.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	if h.validator != nil && !h.verifySignature(r) {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	sender := r.PostForm.Get(fieldFrom)
	if sender == "" {
		http.Error(w, "missing sender", http.StatusBadRequest)
		return
	}

	msg := messenger.InboundMessage{
		Platform:    Platform,
		SenderID:    sender,
		DisplayName: r.PostForm.Get(fieldProfileName),
		Text:        r.PostForm.Get(fieldBody),
		ReplyTo:     sender,
	}

	reply, err := h.inbound.HandleInbound(r.Context(), msg)
	if err != nil {
		log.Error().Err(err).Str("sender_id", sender).Msg("twilio webhook failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if reply == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	body, err := twiml.Messages([]twiml.Element{&twiml.MessagingMessage{Body: reply}})
	if err != nil {
		log.Error().Err(err).Msg("render twiml reply")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if _, writeErr := w.Write([]byte(body)); writeErr != nil {
		log.Error().Err(writeErr).Msg("write twiml reply")
	}
}

// verifySignature checks the request against the public URL Twilio signed.
func (h *Handler) verifySignature(r *http.Request) bool {
	signature := r.Header.Get(signatureHeader)
	if signature == "" {
		return false
	}

	params := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	return h.validator.Validate(h.baseURL+r.URL.RequestURI(), params, signature)
}
