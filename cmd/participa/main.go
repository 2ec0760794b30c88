package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"
	"github.com/subosito/gotenv"

	"github.com/gosuda/participa/internal/command"
	"github.com/gosuda/participa/internal/config"
	pslack "github.com/gosuda/participa/internal/messenger/slack"
	ptwilio "github.com/gosuda/participa/internal/messenger/twilio"
	"github.com/gosuda/participa/internal/notify"
	"github.com/gosuda/participa/internal/report"
	"github.com/gosuda/participa/internal/scheduler"
	"github.com/gosuda/participa/internal/server"
	"github.com/gosuda/participa/internal/store"
	redisstore "github.com/gosuda/participa/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// A local .env fills in variables the environment does not already set.
	if err := gotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}

	// Initialize structured logging from environment.
	logLevel := os.Getenv("PARTICIPA_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("PARTICIPA_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Open the ledger and make sure its schema exists.
	ledger, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer ledger.Close()

	if initErr := ledger.Initialize(ctx); initErr != nil {
		return initErr
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("ledger ready")

	// Report runs are serialized across processes when Redis is configured.
	var locker report.Locker = report.NewMutexLocker()
	if cfg.Redis.Addr != "" {
		rdb, redisErr := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if redisErr != nil {
			return redisErr
		}
		defer rdb.Close()
		locker = redisstore.NewLocker(rdb, redisstore.ReportLockKey(cfg.Report.Dir))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("report lock backed by redis")
	}

	// Outbound messengers.
	registry := notify.NewRegistry()
	if cfg.Twilio.Enabled() {
		api := ptwilio.NewMessagesAPI(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
		registry.Register(ptwilio.NewTwilioMessenger(api, cfg.Twilio.From))
	}

	var slackUsers pslack.UserDirectory
	if cfg.Slack.Enabled() {
		slackClient := slacklib.New(cfg.Slack.BotToken)
		registry.Register(pslack.NewSlackMessenger(slackClient))
		slackUsers = slackClient
	}
	notifier := notify.New(registry)
	log.Info().Strs("platforms", registry.Platforms()).Msg("messengers registered")

	participations := ledger.Participations()

	reports := report.NewService(
		participations,
		report.NewExporter(cfg.Report.Dir),
		notifier,
		report.Recipient{Platform: cfg.Admin.Platform, ID: cfg.Admin.ID},
		report.WithLocker(locker),
		report.WithLocation(cfg.Report.Location),
		report.WithBaseURL(cfg.Server.PublicBaseURL),
	)

	parser := command.NewParser(cfg.Admin.ID, cfg.Commands.RecordTriggers)
	executor := command.NewExecutor(participations, reports, command.WithLocation(cfg.Report.Location))
	processor := command.NewProcessor(parser, executor)

	// Scheduled reports.
	sched, err := scheduler.New(cfg.Report.Schedule, cfg.Report.Location, func(ctx context.Context) {
		if _, runErr := reports.RunScheduled(ctx); runErr != nil {
			log.Error().Err(runErr).Msg("scheduled report failed")
		}
	})
	if err != nil {
		return err
	}
	schedDone := sched.Start(ctx)

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, server.Deps{
		Ledger:       participations,
		Reports:      reports,
		Inbound:      processor,
		SlackReplier: notifier,
		SlackUsers:   slackUsers,
	})

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	shutdownErr := srv.Shutdown(shutdownCtx)

	// The ledger and Redis close on return; let a running report finish first.
	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("scheduled report still running at shutdown")
	}

	if shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
