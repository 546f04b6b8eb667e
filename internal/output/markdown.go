package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders reports as Markdown.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatDocument(report *DocumentReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdownHeading(report.Source))
	fmt.Fprintf(&sb, "%d pages, %d characters\n", report.PageCount, report.CharCount)
	for i, page := range report.Pages {
		fmt.Fprintf(&sb, "\n## Page %d\n\n%s\n", i+1, strings.TrimSpace(page))
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatSummary(report *SummaryReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Summary: %s\n\n", escapeMarkdownHeading(report.Source))
	sb.WriteString(strings.TrimSpace(report.Summary))
	sb.WriteString("\n")
	if report.Truncated {
		fmt.Fprintf(&sb, "\n_Input truncated before analysis (%d characters in source)._\n", report.InputChars)
	}
	return sb.String(), nil
}

func escapeMarkdownHeading(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.ReplaceAll(value, "#", "\\#")
}
