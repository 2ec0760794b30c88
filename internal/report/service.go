package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/participa/internal/domain"
)

const msgNoRecords = "ℹ️ Nenhum registro de participação encontrado para gerar o relatório."

// Trigger records what started a report run.
type Trigger string

const (
	TriggerOnDemand  Trigger = "on_demand"
	TriggerScheduled Trigger = "scheduled"
)

// LedgerReader is the read side of the ledger consumed by reports.
type LedgerReader interface {
	ListAll(ctx context.Context) ([]*domain.ParticipationRecord, error)
}

// Notifier delivers text to one recipient on a platform.
// *notify.Notifier satisfies this interface.
type Notifier interface {
	NotifyVia(ctx context.Context, platform, to, text string) error
}

// Recipient identifies who receives report messages.
type Recipient struct {
	Platform string
	ID       string
}

// RunResult describes one completed report run.
type RunResult struct {
	RunID    string   `json:"run_id"`
	Trigger  Trigger  `json:"trigger"`
	Summary  Summary  `json:"summary"`
	Files    []string `json:"files"`
	Notified bool     `json:"notified"`
}

// Service generates, exports, and delivers participation reports.
type Service struct {
	ledger   LedgerReader
	exporter *Exporter
	notifier Notifier
	admin    Recipient
	locker   Locker
	loc      *time.Location
	baseURL  string
}

// ServiceOption configures optional Service parameters.
type ServiceOption func(*Service)

// WithLocker replaces the default in-process lock.
func WithLocker(l Locker) ServiceOption {
	return func(s *Service) {
		s.locker = l
	}
}

// WithLocation sets the time zone used for report dates.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithBaseURL sets the public URL prefix for spreadsheet links.
func WithBaseURL(u string) ServiceOption {
	return func(s *Service) {
		s.baseURL = u
	}
}

// NewService creates a Service that reports to admin.
func NewService(ledger LedgerReader, exporter *Exporter, notifier Notifier, admin Recipient, opts ...ServiceOption) *Service {
	s := &Service{
		ledger:   ledger,
		exporter: exporter,
		notifier: notifier,
		admin:    admin,
		locker:   NewMutexLocker(),
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary computes the current grouping without exporting or notifying.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	records, err := s.ledger.ListAll(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("report.Service.Summary: %w", err)
	}
	return Summarize(records, s.loc), nil
}

// DownloadURL returns the public link of the spreadsheet export.
func (s *Service) DownloadURL() string {
	return s.baseURL + "/reports/" + XLSXFileName
}

// RunOnDemand runs the report for an explicit request. An empty ledger sends a
// "no records" notice instead of a report.
func (s *Service) RunOnDemand(ctx context.Context) (*RunResult, error) {
	return s.run(ctx, TriggerOnDemand)
}

// RunScheduled runs the report for a calendar trigger. An empty ledger is a
// silent no-op.
func (s *Service) RunScheduled(ctx context.Context) (*RunResult, error) {
	return s.run(ctx, TriggerScheduled)
}

// run returns a non-nil result together with a *domain.NotificationError when
// the exports succeeded but delivery failed.
func (s *Service) run(ctx context.Context, trigger Trigger) (*RunResult, error) {
	result := &RunResult{
		RunID:   uuid.NewString(),
		Trigger: trigger,
		Files:   []string{},
	}
	logger := log.With().Str("run_id", result.RunID).Str("trigger", string(trigger)).Logger()

	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("report.Service.run: acquire lock: %w", err)
	}
	defer unlock()

	records, err := s.ledger.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("report.Service.run: %w", err)
	}

	result.Summary = Summarize(records, s.loc)

	if len(records) == 0 {
		if trigger == TriggerScheduled {
			logger.Info().Msg("ledger empty, scheduled report skipped")
			return result, nil
		}
		if err := s.notifier.NotifyVia(ctx, s.admin.Platform, s.admin.ID, msgNoRecords); err != nil {
			return result, fmt.Errorf("report.Service.run: %w", err)
		}
		result.Notified = true
		logger.Info().Msg("ledger empty, admin notified")
		return result, nil
	}

	files, err := s.exporter.Write(result.Summary)
	if err != nil {
		return nil, fmt.Errorf("report.Service.run: %w", err)
	}
	result.Files = files

	if err := s.notifier.NotifyVia(ctx, s.admin.Platform, s.admin.ID, Message(result.Summary, s.DownloadURL())); err != nil {
		return result, fmt.Errorf("report.Service.run: %w", err)
	}
	result.Notified = true

	logger.Info().
		Int("rows", len(result.Summary.Rows)).
		Int("total", result.Summary.Total).
		Msg("report delivered")

	return result, nil
}
