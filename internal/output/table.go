package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// previewChars limits the per-page preview column.
const previewChars = 60

// TableFormatter renders reports as ASCII tables.
type TableFormatter struct{}

// FormatDocument lists each page with its size and a preview.
func (f *TableFormatter) FormatDocument(report *DocumentReport) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(report.Source)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Page", "Chars", "Preview"})
	for i, page := range report.Pages {
		t.AppendRow(table.Row{i + 1, len([]rune(page)), preview(page)})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d pages", report.PageCount),
		report.CharCount,
		"",
	})
	return t.Render(), nil
}

// FormatSummary renders result metadata followed by the summary text.
func (f *TableFormatter) FormatSummary(report *SummaryReport) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendRow(table.Row{"Source", report.Source})
	t.AppendRow(table.Row{"Provider", report.Provider})
	t.AppendRow(table.Row{"Input chars", report.InputChars})
	t.AppendRow(table.Row{"Truncated", report.Truncated})
	if report.FinishReason != "" {
		t.AppendRow(table.Row{"Finish reason", report.FinishReason})
	}
	return t.Render() + "\n\n" + report.Summary, nil
}

func preview(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= previewChars {
		return flat
	}
	return string(runes[:previewChars-3]) + "..."
}
