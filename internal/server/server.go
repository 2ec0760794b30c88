package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/participa/internal/api/v1"
	"github.com/gosuda/participa/internal/config"
	"github.com/gosuda/participa/internal/messenger"
	pslack "github.com/gosuda/participa/internal/messenger/slack"
	ptwilio "github.com/gosuda/participa/internal/messenger/twilio"
	"github.com/gosuda/participa/internal/server/middleware"
)

// Webhook rate limit per client IP.
const (
	webhookRPS   = 5
	webhookBurst = 20
)

// Deps are the collaborators the HTTP surface dispatches to.
type Deps struct {
	Ledger  v1.Ledger
	Reports v1.ReportService
	Inbound messenger.InboundHandler

	// SlackReplier and SlackUsers are only used when Slack is configured.
	// SlackUsers may be nil.
	SlackReplier pslack.Replier
	SlackUsers   pslack.UserDirectory
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	cfg        *config.Config
}

// New creates a Server with all routes wired. ctx bounds background work such
// as rate-limiter cleanup.
func New(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)

	s := &Server{
		router: router,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Chat webhooks: real handler if configured, 501 placeholder otherwise.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ctx, webhookRPS, webhookBurst))

		if h := buildTwilioHandler(cfg, deps); h != nil {
			r.Post("/whatsapp", h.HandleWebhook)
		} else {
			r.Post("/whatsapp", notImplemented)
		}

		if h := buildSlackHandler(cfg, deps); h != nil {
			r.Post("/slack/events", h.HandleEvents)
		} else {
			r.Post("/slack/events", notImplemented)
		}
	})

	router.Get("/reports/{filename}", reportFileHandler(cfg.Report.Dir))

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// The operator API exists only when a key is configured.
	if cfg.API.Key != "" {
		router.Route("/api/v1", func(r chi.Router) {
			r.Use(cors.New(cors.Options{
				AllowedOrigins: cfg.Server.CORSOrigins,
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Content-Type", middleware.APIKeyHeader, "X-Request-ID"},
				ExposedHeaders: []string{"X-Request-ID"},
				MaxAge:         300,
			}).Handler)
			r.Use(middleware.APIKey(cfg.API.Key))

			apiConfig := huma.DefaultConfig("Participa API", "1.0.0")
			apiConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			api := humachi.New(r, apiConfig)
			registerAPIRoutes(api, deps)
		})
		log.Info().Msg("operator API enabled on /api/v1")
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func buildTwilioHandler(cfg *config.Config, deps Deps) *ptwilio.Handler {
	if !cfg.Twilio.Enabled() || deps.Inbound == nil {
		return nil
	}

	var opts []ptwilio.HandlerOption
	if cfg.Twilio.ValidateSignature {
		opts = append(opts, ptwilio.WithSignatureValidation(cfg.Twilio.AuthToken, cfg.Server.PublicBaseURL))
	}

	log.Info().Bool("validate_signature", cfg.Twilio.ValidateSignature).Msg("WhatsApp webhook enabled")
	return ptwilio.NewHandler(deps.Inbound, opts...)
}

// buildSlackHandler returns nil if the signing secret is not set.
func buildSlackHandler(cfg *config.Config, deps Deps) *pslack.Handler {
	if cfg.Slack.SigningSecret == "" || deps.Inbound == nil || deps.SlackReplier == nil {
		return nil
	}

	log.Info().Msg("Slack integration enabled")
	return pslack.NewHandler(cfg.Slack.SigningSecret, deps.Inbound, deps.SlackReplier, deps.SlackUsers)
}

func notImplemented(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotImplemented)
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
