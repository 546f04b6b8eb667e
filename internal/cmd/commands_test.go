package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-10-01")

	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "picolens 1.2.3\n", out)

	out, err = executeCommand(t, "version", "--extended")
	require.NoError(t, err)
	assert.Contains(t, out, "Commit: abc123")
	assert.Contains(t, out, "Gofulmen:")
	assert.Contains(t, out, "Crucible:")

	out, err = executeCommand(t, "version", "--json")
	require.NoError(t, err)
	var payload map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "picolens", payload["app"]["name"])
	assert.Contains(t, payload, "dependencies")
}

func TestExtractCommand(t *testing.T) {
	path := writePDF(t, "Trial Report.pdf", "Population adults", "Outcome mortality")

	out, err := executeCommand(t, "extract", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Population adults")
	assert.Less(t, strings.Index(out, "Population"), strings.Index(out, "Outcome"))

	out, err = executeCommand(t, "extract", "--output-format", "json", path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Trial Report.pdf", doc["source"])
	assert.EqualValues(t, 2, doc["page_count"])
}

func TestExtractCommandOutDir(t *testing.T) {
	path := writePDF(t, "Trial Report.pdf", "Comparison placebo")
	dir := filepath.Join(t.TempDir(), "out")

	out, err := executeCommand(t, "extract", "--output-format", "markdown", "--out-dir", dir, path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(filepath.Join(dir, "trial-report.text.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Page 1")
}

func TestExtractCommandErrors(t *testing.T) {
	notPDF := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(notPDF, []byte("plain text"), 0o600))

	_, err := executeCommand(t, "extract", notPDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to extract text from PDF")

	path := writePDF(t, "a.pdf", "x")
	_, err = executeCommand(t, "extract", "--output-format", "csv", path)
	require.Error(t, err)

	_, err = executeCommand(t, "extract", "--out", "a.txt", "--out-dir", t.TempDir(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestAnalyzeCommand(t *testing.T) {
	calls := useFakeGemini(t, 200, okGeminiBody)
	path := writePDF(t, "trial.pdf", "Intervention telemedicine")

	out, err := executeCommand(t, "analyze", path)
	require.NoError(t, err)
	assert.Equal(t, "PICO summary\n", out)
	assert.EqualValues(t, 1, calls.Load())

	out, err = executeCommand(t, "analyze", "--output-format", "json", path)
	require.NoError(t, err)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "PICO summary", report["summary"])
	assert.Equal(t, "trial.pdf", report["source"])
	assert.Equal(t, false, report["truncated"])
}

func TestAnalyzeCommandPlainText(t *testing.T) {
	calls := useFakeGemini(t, 200, okGeminiBody)
	path := filepath.Join(t.TempDir(), "abstract.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("a", 40)), 0o600))
	t.Setenv("PICOLENS_ANALYSIS_MAX_TEXT_LENGTH", "10")

	out, err := executeCommand(t, "analyze", "--plain", "--output-format", "json", path)
	require.NoError(t, err)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, true, report["truncated"])
	assert.EqualValues(t, 40, report["input_chars"])
	assert.EqualValues(t, 1, calls.Load())
}

func TestAnalyzeCommandEmptyText(t *testing.T) {
	calls := useFakeGemini(t, 200, okGeminiBody)
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := executeCommand(t, "analyze", "--plain", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text could be extracted")
	assert.Zero(t, calls.Load())
}

func TestAnalyzeCommandProviderError(t *testing.T) {
	useFakeGemini(t, 503, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
	path := writePDF(t, "trial.pdf", "Outcome")

	_, err := executeCommand(t, "analyze", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestAnalyzeCommandWithoutAPIKey(t *testing.T) {
	t.Setenv("PICOLENS_AILINK_API_KEY", "")
	path := writePDF(t, "trial.pdf", "Outcome")

	_, err := executeCommand(t, "analyze", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key is required")
}

func TestRateLimitStatusRequiresRedis(t *testing.T) {
	_, err := executeCommand(t, "rate-limit", "status", "203.0.113.7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "per-process")
}

func TestDoctorCommand(t *testing.T) {
	useFakeGemini(t, 200, okGeminiBody)

	out, err := executeCommand(t, "doctor", "--ping-provider")
	require.NoError(t, err)
	assert.Contains(t, out, "pico-summary")
	assert.Contains(t, out, "provider ping")
	assert.Contains(t, out, "0 failed")
}

func TestDoctorCommandReportsMissingKey(t *testing.T) {
	t.Setenv("PICOLENS_AILINK_API_KEY", "")
	out, err := executeCommand(t, "doctor")
	require.Error(t, err)
	assert.Contains(t, out, "api key is required")
	assert.Contains(t, out, "1 failed")
}

func TestRenderChecksFooterKeepsCase(t *testing.T) {
	var out strings.Builder
	failed := renderChecks(&out, []checkResult{
		{Name: "config", Status: checkOK},
		{Name: "provider", Status: checkFail, Detail: "unreachable"},
	})
	assert.Equal(t, 1, failed)
	assert.Contains(t, out.String(), "1 failed")
	assert.NotContains(t, out.String(), "FAILED")
}

func TestDoctorInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picolens", "config.yaml")

	var out strings.Builder
	require.NoError(t, writeDefaultConfig(&out, path, false))
	assert.Contains(t, out.String(), path)
	require.Error(t, writeDefaultConfig(&out, path, false))
	require.NoError(t, writeDefaultConfig(&out, path, true))

	t.Setenv("PICOLENS_AILINK_API_KEY", "sk-test-0123456789")
	rendered, err := executeCommand(t, "envinfo", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, rendered, path)
	assert.Contains(t, rendered, "5 per 1m0s (memory)")
	assert.Contains(t, rendered, "****6789")
	assert.NotContains(t, rendered, "sk-test-0123456789")
}
