package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/picolens/picolens/internal/appid"
	"github.com/picolens/picolens/internal/config"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display version, runtime and effective configuration. Secrets are masked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		version := crucible.GetVersion()

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetTitle(appid.Get().BinaryName + " environment")

		t.AppendRow(table.Row{"Version", versionInfo.Version})
		t.AppendRow(table.Row{"Commit", versionInfo.Commit})
		t.AppendRow(table.Row{"Built", versionInfo.BuildDate})
		t.AppendRow(table.Row{"Gofulmen", version.Gofulmen})
		t.AppendRow(table.Row{"Crucible", version.Crucible})
		t.AppendRow(table.Row{"Go", runtime.Version()})
		t.AppendRow(table.Row{"Platform", runtime.GOOS + "/" + runtime.GOARCH})
		t.AppendSeparator()

		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			configFile = "(none; default " + config.DefaultConfigPath() + ")"
		}
		t.AppendRow(table.Row{"Config file", configFile})

		cfg, err := loadConfig()
		if err != nil {
			t.AppendRow(table.Row{"Config error", err.Error()})
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		}

		t.AppendRow(table.Row{"Listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)})
		t.AppendRow(table.Row{"Log level", cfg.Logging.Level})
		t.AppendRow(table.Row{"Metrics", metricsSummary(cfg.Metrics)})
		t.AppendRow(table.Row{"Rate limit", fmt.Sprintf("%d per %s (%s)",
			cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window, cfg.RateLimit.Backend)})
		t.AppendRow(table.Row{"Provider", cfg.AILink.Provider})
		t.AppendRow(table.Row{"Model", valueOr(cfg.AILink.Model, "(driver default)")})
		t.AppendRow(table.Row{"API key", maskSecret(cfg.AILink.APIKey)})
		t.AppendRow(table.Row{"Max text length", cfg.Analysis.MaxTextLength})

		_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return err
	},
}

func metricsSummary(m config.MetricsConfig) string {
	if !m.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("enabled (port %d)", m.Port)
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// maskSecret keeps the last four characters of long secrets.
func maskSecret(secret string) string {
	switch {
	case secret == "":
		return "(not set)"
	case len(secret) <= 8:
		return "****"
	default:
		return "****" + secret[len(secret)-4:]
	}
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
