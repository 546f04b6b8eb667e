package output

import (
	"encoding/json"
)

// JSONFormatter renders reports as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) FormatDocument(report *DocumentReport) (string, error) {
	return f.marshal(report)
}

func (f *JSONFormatter) FormatSummary(report *SummaryReport) (string, error) {
	return f.marshal(report)
}

func (f *JSONFormatter) marshal(v interface{}) (string, error) {
	var (
		data []byte
		err  error
	)
	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
