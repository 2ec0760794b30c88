package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/participa/internal/domain"
	"github.com/gosuda/participa/internal/report"
	"github.com/gosuda/participa/internal/server/middleware"
)

type GetSummaryOutput struct {
	Body *report.Summary
}

type RunBody struct {
	RunID             string         `json:"run_id"`
	Trigger           report.Trigger `json:"trigger"`
	Rows              int            `json:"rows"`
	Total             int            `json:"total"`
	Files             []string       `json:"files"`
	DownloadURL       string         `json:"download_url,omitempty"`
	Notified          bool           `json:"notified"`
	NotificationError string         `json:"notification_error,omitempty"`
}

type CreateRunOutput struct {
	Body *RunBody
}

func RegisterReportRoutes(api huma.API, reports ReportService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-report-summary",
		Method:      http.MethodGet,
		Path:        "/report/summary",
		Summary:     "Compute the participation summary without exporting",
		Tags:        []string{"Report"},
	}, func(ctx context.Context, _ *struct{}) (*GetSummaryOutput, error) {
		summary, err := reports.Summary(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to summarize ledger", err)
		}
		return &GetSummaryOutput{Body: &summary}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-report-run",
		Method:        http.MethodPost,
		Path:          "/report/runs",
		Summary:       "Run the report now and notify the admin",
		Tags:          []string{"Report"},
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, _ *struct{}) (*CreateRunOutput, error) {
		client, _ := middleware.ClientFromContext(ctx)

		result, err := reports.RunOnDemand(ctx)
		if err != nil && (result == nil || !domain.IsNotificationError(err)) {
			return nil, huma.Error500InternalServerError("report run failed", err)
		}

		body := &RunBody{
			RunID:    result.RunID,
			Trigger:  result.Trigger,
			Rows:     len(result.Summary.Rows),
			Total:    result.Summary.Total,
			Files:    result.Files,
			Notified: result.Notified,
		}
		if len(result.Files) > 0 {
			body.DownloadURL = reports.DownloadURL()
		}
		if err != nil {
			body.NotificationError = err.Error()
		}

		log.Info().Str("run_id", result.RunID).Str("client", client).Bool("notified", result.Notified).Msg("report run requested via api")
		return &CreateRunOutput{Body: body}, nil
	})
}
