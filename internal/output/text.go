package output

// TextFormatter prints the raw extracted text or the bare summary, suitable
// for piping.
type TextFormatter struct{}

func (f *TextFormatter) FormatDocument(report *DocumentReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return report.Text(), nil
}

func (f *TextFormatter) FormatSummary(report *SummaryReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return report.Summary, nil
}
