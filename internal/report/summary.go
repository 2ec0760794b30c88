package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gosuda/participa/internal/domain"
)

// DateLayout is the timestamp format used in report rows.
const DateLayout = "02/01/2006 15:04"

// Separator joins per-row dates and labels in exports.
const Separator = " | "

// Row aggregates all records sharing one display name.
type Row struct {
	DisplayName string   `json:"display_name"`
	Count       int      `json:"count"`
	Dates       []string `json:"dates"`
	Labels      []string `json:"labels"`
}

// Summary is the grouped view of the whole ledger.
type Summary struct {
	Rows  []Row `json:"rows"`
	Total int   `json:"total"`
}

// Summarize groups records by display name. Rows are ordered by display name;
// dates and labels inside a row keep the order of records, which callers pass
// in insertion order. Absent labels are skipped.
func Summarize(records []*domain.ParticipationRecord, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}

	index := make(map[string]int, len(records))
	rows := make([]Row, 0)
	for _, rec := range records {
		i, ok := index[rec.DisplayName]
		if !ok {
			i = len(rows)
			index[rec.DisplayName] = i
			rows = append(rows, Row{
				DisplayName: rec.DisplayName,
				Dates:       make([]string, 0, 1),
				Labels:      make([]string, 0),
			})
		}
		row := &rows[i]
		row.Count++
		row.Dates = append(row.Dates, rec.RecordedAt.In(loc).Format(DateLayout))
		if rec.Label != "" {
			row.Labels = append(row.Labels, rec.Label)
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].DisplayName < rows[b].DisplayName
	})

	return Summary{Rows: rows, Total: len(records)}
}

// Message renders the admin summary with a link to the spreadsheet.
func Message(s Summary, link string) string {
	var b strings.Builder
	b.WriteString("📊 *Relatório de Participação*\n\n")
	for _, row := range s.Rows {
		fmt.Fprintf(&b, "*%s*: %d participações\n", row.DisplayName, row.Count)
	}
	fmt.Fprintf(&b, "\nBaixe o relatório completo em Excel aqui:\n%s", link)
	return b.String()
}
