package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/picolens/picolens/internal/analysis"
	"github.com/picolens/picolens/internal/observability"
	"github.com/picolens/picolens/internal/output"
	"github.com/picolens/picolens/internal/pdftext"
)

var analyzePlain bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Summarize a PDF with the configured completion provider",
	Long: `Extract the text of a PDF and ask the completion provider for a PICO
summary, the same way POST /api/analyze does. No rate limit is applied.

Use --plain to analyze a UTF-8 text file instead of a PDF.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid configuration", err)
			return err
		}

		path := args[0]
		text, err := readDocumentText(path, analyzePlain)
		if err != nil {
			return err
		}

		svc, err := newAnalysisService(cfg, observability.CLILogger)
		if err != nil {
			return err
		}

		summary, err := svc.Analyze(cmd.Context(), analysis.Input{Text: text})
		if err != nil {
			var verr *analysis.ValidationError
			if errors.As(err, &verr) && strings.TrimSpace(text) == "" {
				return fmt.Errorf("%s: no text could be extracted", path)
			}
			return err
		}
		if summary.Truncated {
			observability.CLILogger.Warn("Input truncated before analysis",
				zap.Int("chars", len([]rune(text))),
				zap.Int("max_text_length", svc.Options.MaxTextLength))
		}

		name := filepath.Base(path)
		report := output.NewSummaryReport(name, svc.Driver.Name(), len([]rune(text)), summary)
		rendered, err := output.NewFormatter(format).FormatSummary(report)
		if err != nil {
			return err
		}
		return writeOutput(cmd, format, strings.TrimSuffix(name, filepath.Ext(name))+".summary", rendered)
	},
}

func readDocumentText(path string, plain bool) (string, error) {
	if plain {
		data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the operator
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	doc, err := pdftext.ExtractFile(path)
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addOutputFlags(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzePlain, "plain", false, "treat the input as a plain text file")
}
