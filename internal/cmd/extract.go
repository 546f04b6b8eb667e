package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/picolens/picolens/internal/observability"
	"github.com/picolens/picolens/internal/output"
	"github.com/picolens/picolens/internal/pdftext"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Extract plain text from a PDF",
	Long: `Extract the text of every page of a PDF, in page order.

The default text format prints the pages joined by newlines, which is the
input POST /api/analyze expects.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		path := args[0]
		doc, err := pdftext.ExtractFile(path)
		if err != nil {
			return err
		}
		observability.CLILogger.Debug("Extracted PDF",
			zap.String("file", path),
			zap.Int("pages", doc.PageCount()),
			zap.Int("chars", doc.CharCount()))

		name := filepath.Base(path)
		rendered, err := output.NewFormatter(format).FormatDocument(output.NewDocumentReport(name, doc))
		if err != nil {
			return err
		}
		return writeOutput(cmd, format, strings.TrimSuffix(name, filepath.Ext(name))+".text", rendered)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addOutputFlags(extractCmd)
}
