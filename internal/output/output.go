// Package output renders extraction and analysis results for the CLI.
package output

import (
	"fmt"
	"strings"

	"github.com/picolens/picolens/internal/analysis"
	"github.com/picolens/picolens/internal/pdftext"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// DocumentReport is the result of extracting one PDF.
type DocumentReport struct {
	Source    string   `json:"source"`
	PageCount int      `json:"page_count"`
	CharCount int      `json:"char_count"`
	Pages     []string `json:"pages"`
}

// NewDocumentReport summarizes doc read from source.
func NewDocumentReport(source string, doc *pdftext.Document) *DocumentReport {
	report := &DocumentReport{Source: source, Pages: []string{}}
	if doc == nil {
		return report
	}
	report.Pages = doc.Pages
	report.PageCount = doc.PageCount()
	report.CharCount = doc.CharCount()
	return report
}

// Text joins the pages the same way pdftext.Document does.
func (r *DocumentReport) Text() string {
	return strings.Join(r.Pages, "\n")
}

// SummaryReport is the result of analyzing one PDF.
type SummaryReport struct {
	Source       string `json:"source"`
	Provider     string `json:"provider,omitempty"`
	InputChars   int    `json:"input_chars"`
	Truncated    bool   `json:"truncated"`
	FinishReason string `json:"finish_reason,omitempty"`
	Summary      string `json:"summary"`
}

// NewSummaryReport collects the CLI view of an analysis result.
func NewSummaryReport(source, provider string, inputChars int, summary *analysis.Summary) *SummaryReport {
	report := &SummaryReport{Source: source, Provider: provider, InputChars: inputChars}
	if summary != nil {
		report.Summary = summary.Summary
		report.Truncated = summary.Truncated
		report.FinishReason = summary.FinishReason
	}
	return report
}

// Formatter renders reports.
type Formatter interface {
	FormatDocument(report *DocumentReport) (string, error)
	FormatSummary(report *SummaryReport) (string, error)
}

// ParseFormat validates and normalizes a format string. Empty selects text.
func ParseFormat(value string) (Format, error) {
	switch normalized := Format(strings.ToLower(strings.TrimSpace(value))); normalized {
	case "":
		return FormatText, nil
	case FormatText, FormatTable, FormatJSON, FormatMarkdown:
		return normalized, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	case FormatTable:
		return &TableFormatter{}
	default:
		return &TextFormatter{}
	}
}
