package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/picolens/picolens/internal/config"
)

var rateLimitJSON bool

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect shared rate limit state",
}

// rateLimitStatus is the view of one client's current window.
type rateLimitStatus struct {
	Client    string     `json:"client"`
	Limit     int        `json:"limit"`
	Window    string     `json:"window"`
	Used      int        `json:"used"`
	Remaining int        `json:"remaining"`
	ResetAt   *time.Time `json:"reset_at,omitempty"`
}

var rateLimitStatusCmd = &cobra.Command{
	Use:   "status <client-ip>...",
	Short: "Show the current window for clients (redis backend only)",
	Long: `Show how many requests each client has used in its current window.

The memory backend keeps counters inside the serving process, so only the
redis backend can be inspected from the CLI.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.RateLimit.Backend != config.BackendRedis {
			return fmt.Errorf("rate limit state is per-process with the %s backend; set ratelimit.backend=redis", cfg.RateLimit.Backend)
		}

		backend, err := newRateLimitBackend(cfg.RateLimit)
		if err != nil {
			return err
		}
		defer backend.Close() // nolint:errcheck // best-effort cleanup
		limiter := backend.newLimiter(cfg.RateLimit, nil)

		statuses := make([]rateLimitStatus, 0, len(args))
		for _, client := range args {
			counter, err := limiter.Peek(cmd.Context(), client)
			if err != nil {
				return fmt.Errorf("read %s: %w", client, err)
			}
			status := rateLimitStatus{
				Client:    client,
				Limit:     limiter.Limit,
				Window:    limiter.Window.String(),
				Remaining: limiter.Limit,
			}
			if counter != nil {
				reset := counter.ExpiresAt.UTC()
				status.Used = counter.Count
				status.Remaining = max(limiter.Limit-counter.Count, 0)
				status.ResetAt = &reset
			}
			statuses = append(statuses, status)
		}

		out := cmd.OutOrStdout()
		if rateLimitJSON {
			payload, err := json.MarshalIndent(statuses, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(payload))
			return err
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Client", "Used", "Remaining", "Resets"})
		for _, s := range statuses {
			reset := "-"
			if s.ResetAt != nil {
				reset = s.ResetAt.Format(time.RFC3339)
			}
			t.AppendRow(table.Row{s.Client, fmt.Sprintf("%d/%d", s.Used, s.Limit), s.Remaining, reset})
		}
		_, err = fmt.Fprintln(out, t.Render())
		return err
	},
}

func init() {
	rateLimitCmd.AddCommand(rateLimitStatusCmd)
	rootCmd.AddCommand(rateLimitCmd)
	rateLimitStatusCmd.Flags().BoolVar(&rateLimitJSON, "json", false, "print JSON")
}
