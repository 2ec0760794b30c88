package v1

import (
	"context"

	"github.com/gosuda/participa/internal/domain"
	"github.com/gosuda/participa/internal/report"
)

// Ledger abstracts the read side of the ledger for handler testing.
// domain.ParticipationRepository satisfies this interface.
type Ledger interface {
	ListRecent(ctx context.Context, limit int) ([]domain.RecentEntry, error)
	ListBySender(ctx context.Context, senderID string) ([]domain.HistoryEntry, error)
	Count(ctx context.Context) (int64, error)
}

// ReportService abstracts report operations for handler testing.
// *report.Service satisfies this interface.
type ReportService interface {
	Summary(ctx context.Context) (report.Summary, error)
	RunOnDemand(ctx context.Context) (*report.RunResult, error)
	DownloadURL() string
}
