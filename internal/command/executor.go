package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/participa/internal/domain"
	"github.com/gosuda/participa/internal/report"
)

// ReportRunner triggers an on-demand report run.
// *report.Service satisfies this interface.
type ReportRunner interface {
	RunOnDemand(ctx context.Context) (*report.RunResult, error)
}

// Executor applies commands against the ledger and produces reply text.
type Executor struct {
	ledger  domain.ParticipationRepository
	reports ReportRunner
	loc     *time.Location
}

// ExecutorOption configures optional Executor parameters.
type ExecutorOption func(*Executor)

// WithLocation sets the time zone used to format dates in replies.
func WithLocation(loc *time.Location) ExecutorOption {
	return func(e *Executor) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewExecutor creates an Executor. Dates are formatted in UTC unless
// WithLocation is given.
func NewExecutor(ledger domain.ParticipationRepository, reports ReportRunner, opts ...ExecutorOption) *Executor {
	e := &Executor{
		ledger:  ledger,
		reports: reports,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs cmd and returns the reply text. An empty reply means nothing
// should be sent back. Ledger mutations are committed before the reply exists.
func (e *Executor) Execute(ctx context.Context, cmd Command) (string, error) {
	switch cmd.Action {
	case ActionRecord:
		if _, err := e.ledger.Append(ctx, cmd.SenderID, cmd.DisplayName, cmd.Label); err != nil {
			return "", fmt.Errorf("command.Executor.Execute: record: %w", err)
		}
		return recordedMessage(cmd.DisplayName), nil

	case ActionHistory:
		entries, err := e.ledger.ListBySender(ctx, cmd.SenderID)
		if err != nil {
			return "", fmt.Errorf("command.Executor.Execute: history: %w", err)
		}
		return historyMessage(cmd.DisplayName, entries, e.loc), nil

	case ActionHelp:
		return msgHelp, nil

	case ActionRecent:
		entries, err := e.ledger.ListRecent(ctx, RecentLimit)
		if err != nil {
			return "", fmt.Errorf("command.Executor.Execute: recent: %w", err)
		}
		return recentMessage(entries, e.loc), nil

	case ActionUndoLast:
		if cmd.Target != "" {
			log.Info().Str("sender_id", cmd.SenderID).Str("target", cmd.Target).Msg("undo for another sender is not supported")
			return msgUndoTarget, nil
		}
		deleted, err := e.ledger.DeleteLatestBySender(ctx, cmd.SenderID)
		if err != nil {
			return "", fmt.Errorf("command.Executor.Execute: undo: %w", err)
		}
		if !deleted {
			return msgUndoNothing, nil
		}
		return msgUndoDone, nil

	case ActionReportNow:
		return "", e.runReport(ctx)

	default:
		return "", nil
	}
}

// runReport runs the report synchronously. The report message itself is the
// acknowledgment, so delivery failures are logged and not returned.
func (e *Executor) runReport(ctx context.Context) error {
	if e.reports == nil {
		return errors.New("command.Executor.runReport: no report runner configured")
	}

	result, err := e.reports.RunOnDemand(ctx)
	if err != nil {
		if domain.IsNotificationError(err) {
			log.Warn().Err(err).Msg("on-demand report not delivered")
			return nil
		}
		return fmt.Errorf("command.Executor.runReport: %w", err)
	}

	if result != nil {
		log.Info().Str("run_id", result.RunID).Int("rows", len(result.Summary.Rows)).Msg("on-demand report completed")
	}
	return nil
}
