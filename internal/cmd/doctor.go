package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/picolens/picolens/internal/ailink/driver"
	"github.com/picolens/picolens/internal/ailink/prompt"
	"github.com/picolens/picolens/internal/appid"
	"github.com/picolens/picolens/internal/config"
	"github.com/picolens/picolens/internal/observability"
)

const (
	checkOK   = "ok"
	checkWarn = "warn"
	checkFail = "fail"
)

type checkResult struct {
	Name   string
	Status string
	Detail string
}

var (
	doctorPingProvider bool
	doctorInitForce    bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Check the runtime, configuration, prompt, rate limit store and completion
provider settings. Use --ping-provider to send one short completion request.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		results := runDoctor(cmd.Context(), doctorPingProvider)
		failed := renderChecks(cmd.OutOrStdout(), results)
		if failed > 0 {
			return fmt.Errorf("%d diagnostic check(s) failed", failed)
		}
		return nil
	},
}

func runDoctor(ctx context.Context, pingProvider bool) []checkResult {
	version := crucible.GetVersion()
	results := []checkResult{
		{Name: "go runtime", Status: checkOK, Detail: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)},
		{Name: "gofulmen", Status: statusIf(version.Gofulmen != "", checkFail), Detail: version.Gofulmen},
	}

	configPath := config.DefaultConfigPath()
	switch {
	case configPath == "":
		results = append(results, checkResult{Name: "config dir", Status: checkWarn, Detail: "XDG config directory not resolved"})
	default:
		_, statErr := os.Stat(configPath)
		detail := configPath
		if statErr != nil {
			detail += " (not created; run 'doctor init')"
		}
		results = append(results, checkResult{Name: "config dir", Status: checkOK, Detail: detail})
	}

	cfg, err := loadConfig()
	if err != nil {
		return append(results, checkResult{Name: "config", Status: checkFail, Detail: err.Error()})
	}
	results = append(results, checkResult{Name: "config", Status: checkOK, Detail: "valid"})

	if p, err := prompt.Resolve(cfg.AILink.PromptFile); err != nil {
		results = append(results, checkResult{Name: "prompt", Status: checkFail, Detail: err.Error()})
	} else {
		results = append(results, checkResult{Name: "prompt", Status: checkOK, Detail: p.Config.Slug})
	}

	backend, err := newRateLimitBackend(cfg.RateLimit)
	if err != nil {
		results = append(results, checkResult{Name: "ratelimit store", Status: checkFail, Detail: err.Error()})
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		healthErr := backend.CheckHealth(pingCtx)
		cancel()
		_ = backend.Close()
		if healthErr != nil {
			results = append(results, checkResult{Name: "ratelimit store", Status: checkFail, Detail: healthErr.Error()})
		} else {
			results = append(results, checkResult{Name: "ratelimit store", Status: checkOK, Detail: backend.name})
		}
	}

	svc, err := newAnalysisService(cfg, observability.CLILogger)
	if err != nil {
		return append(results, checkResult{Name: "provider", Status: checkFail, Detail: err.Error()})
	}
	results = append(results, checkResult{Name: "provider", Status: checkOK, Detail: svc.Driver.Name()})

	if pingProvider {
		results = append(results, pingDriver(ctx, svc.Driver, cfg.AILink.Model))
	}
	return results
}

func pingDriver(ctx context.Context, drv driver.Driver, model string) checkResult {
	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	started := time.Now()
	_, err := drv.Complete(pingCtx, &driver.Request{
		Model:     model,
		Prompt:    "Reply with the single word: ok",
		MaxTokens: driver.Int(8),
	})
	if err != nil {
		return checkResult{Name: "provider ping", Status: checkFail, Detail: err.Error()}
	}
	return checkResult{Name: "provider ping", Status: checkOK, Detail: time.Since(started).Round(time.Millisecond).String()}
}

func statusIf(ok bool, otherwise string) string {
	if ok {
		return checkOK
	}
	return otherwise
}

// renderChecks prints results and returns the number of failures.
func renderChecks(w io.Writer, results []checkResult) int {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(appid.Get().BinaryName + " doctor")
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})

	failed := 0
	for _, r := range results {
		if r.Status == checkFail {
			failed++
		}
		t.AppendRow(table.Row{r.Name, r.Status, r.Detail})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d failed", failed), ""})
	_, _ = fmt.Fprintln(w, t.Render())
	return failed
}

const defaultConfigTemplate = `# picolens configuration. Environment variables override these values,
# e.g. PICOLENS_RATELIMIT_WINDOW=30s.
server:
  host: localhost
  port: 8080

logging:
  level: info

metrics:
  enabled: true
  port: 9090

ratelimit:
  backend: memory
  requests_per_window: 5
  window: 60s
  capacity: 500

analysis:
  max_text_length: 30000

ailink:
  provider: gemini
  # api_key falls back to GEMINI_API_KEY when empty.
  api_key: ""
  temperature: 0.7
  max_output_tokens: 1024
`

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if path == "" {
			return fmt.Errorf("config path not resolved")
		}
		return writeDefaultConfig(cmd.OutOrStdout(), path, doctorInitForce)
	},
}

func writeDefaultConfig(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o600); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Wrote %s\n", path)
	return err
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.Flags().BoolVar(&doctorPingProvider, "ping-provider", false, "send one short completion request")
	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite an existing config file")
}
