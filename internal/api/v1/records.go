package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/participa/internal/domain"
)

type ListRecentInput struct {
	Limit int `query:"limit" default:"10" minimum:"1" maximum:"100" doc:"Maximum number of records"`
}

type ListRecentBody struct {
	Records []domain.RecentEntry `json:"records"`
	Total   int64                `json:"total" doc:"Number of records in the ledger"`
}

type ListRecentOutput struct {
	Body *ListRecentBody
}

type ListBySenderInput struct {
	SenderID string `query:"sender_id" required:"true" minLength:"1" doc:"Sender identity, e.g. whatsapp:+5571..."`
}

type ListBySenderBody struct {
	SenderID string                `json:"sender_id"`
	Count    int                   `json:"count"`
	Records  []domain.HistoryEntry `json:"records"`
}

type ListBySenderOutput struct {
	Body *ListBySenderBody
}

func RegisterRecordRoutes(api huma.API, ledger Ledger) {
	huma.Register(api, huma.Operation{
		OperationID: "list-recent-records",
		Method:      http.MethodGet,
		Path:        "/records/recent",
		Summary:     "List the newest records across all senders",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *ListRecentInput) (*ListRecentOutput, error) {
		records, err := ledger.ListRecent(ctx, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list records", err)
		}

		total, err := ledger.Count(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to count records", err)
		}

		if records == nil {
			records = make([]domain.RecentEntry, 0)
		}
		return &ListRecentOutput{Body: &ListRecentBody{Records: records, Total: total}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-sender-records",
		Method:      http.MethodGet,
		Path:        "/records",
		Summary:     "List one sender's records, newest first",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *ListBySenderInput) (*ListBySenderOutput, error) {
		records, err := ledger.ListBySender(ctx, input.SenderID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list records", err)
		}

		if records == nil {
			records = make([]domain.HistoryEntry, 0)
		}
		return &ListBySenderOutput{Body: &ListBySenderBody{
			SenderID: input.SenderID,
			Count:    len(records),
			Records:  records,
		}}, nil
	})
}
