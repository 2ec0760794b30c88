package v1_test

import (
	"context"

	"github.com/gosuda/participa/internal/domain"
	"github.com/gosuda/participa/internal/report"
)

// ---------------------------------------------------------------------------
// Mock Ledger
// ---------------------------------------------------------------------------

type mockLedger struct {
	listRecentFunc   func(ctx context.Context, limit int) ([]domain.RecentEntry, error)
	listBySenderFunc func(ctx context.Context, senderID string) ([]domain.HistoryEntry, error)
	countFunc        func(ctx context.Context) (int64, error)
}

func (m *mockLedger) ListRecent(ctx context.Context, limit int) ([]domain.RecentEntry, error) {
	return m.listRecentFunc(ctx, limit)
}

func (m *mockLedger) ListBySender(ctx context.Context, senderID string) ([]domain.HistoryEntry, error) {
	return m.listBySenderFunc(ctx, senderID)
}

func (m *mockLedger) Count(ctx context.Context) (int64, error) {
	if m.countFunc == nil {
		return 0, nil
	}
	return m.countFunc(ctx)
}

// ---------------------------------------------------------------------------
// Mock ReportService
// ---------------------------------------------------------------------------

type mockReports struct {
	summaryFunc func(ctx context.Context) (report.Summary, error)
	runFunc     func(ctx context.Context) (*report.RunResult, error)
}

func (m *mockReports) Summary(ctx context.Context) (report.Summary, error) {
	return m.summaryFunc(ctx)
}

func (m *mockReports) RunOnDemand(ctx context.Context) (*report.RunResult, error) {
	return m.runFunc(ctx)
}

func (m *mockReports) DownloadURL() string {
	return "https://bot.example.com/reports/relatorio_participacao.xlsx"
}
