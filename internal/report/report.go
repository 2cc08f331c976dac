// Package report renders run summaries as terminal tables.
package report

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"supplier_leads_scraper/internal/ledger"
	"supplier_leads_scraper/internal/pagination"
)

// Summary describes a finished scrape.
type Summary struct {
	RunID    string
	Leads    int
	Skipped  int
	Pages    int
	Reloads  int
	Reason   string
	Output   string
	Duration time.Duration
}

// Render writes s as a two-column table.
func Render(w io.Writer, s Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Scrape summary")

	t.AppendRows([]table.Row{
		{"Run", s.RunID},
		{"Leads saved", s.Leads},
		{"Duplicates skipped", s.Skipped},
		{"Pages", s.Pages},
		{"Forced reloads", s.Reloads},
		{"Stopped because", reasonText(s.Reason)},
		{"Output", s.Output},
		{"Duration", s.Duration.Round(time.Second)},
	})
	t.Render()
}

// RenderRuns writes past runs, newest first.
func RenderRuns(w io.Writer, runs []ledger.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Run", "Started", "Duration", "Pages", "Leads", "Reason", "Output"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.Pages,
			r.Leads,
			reasonText(r.Reason),
			r.OutputPath,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", total(runs), "", ""})
	t.Render()
}

func total(runs []ledger.Run) int {
	n := 0
	for _, r := range runs {
		n += r.Leads
	}
	return n
}

func reasonText(reason string) string {
	switch pagination.Reason(reason) {
	case pagination.ReasonNoData:
		return "no data on page"
	case pagination.ReasonCapReached:
		return "lead target reached"
	case pagination.ReasonNoNextPage:
		return "last page"
	case pagination.ReasonCancelled:
		return "interrupted"
	case "":
		return "failed"
	default:
		return reason
	}
}
