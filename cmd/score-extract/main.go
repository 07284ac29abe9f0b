// Command score-extract scores evaluation forms offline, without the MCP
// server, history or rate limits.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-score-reader/internal/config"
	"github.com/a3tai/mcp-score-reader/internal/docx"
	"github.com/a3tai/mcp-score-reader/internal/report"
	"github.com/a3tai/mcp-score-reader/internal/scoring"
	"github.com/a3tai/mcp-score-reader/internal/service"
)

type options struct {
	evalType    string
	output      string
	out         string
	maxFileSize int64
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "score-extract",
		Short:         "Extract student scores from evaluation forms (.docx)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.evalType, "type", "t", "self", "Evaluation type: self or batch")
	root.PersistentFlags().Int64Var(&opts.maxFileSize, "max-size", config.DefaultMaxFileSize, "Maximum size of one form in bytes")

	parse := &cobra.Command{
		Use:   "parse FILE",
		Short: "Print the record extracted from one form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := scoring.ParseEvaluationType(opts.evalType)
			if err != nil {
				return err
			}
			rec, err := parseFile(docx.NewReader(opts.maxFileSize), args[0], t)
			if err != nil {
				return err
			}
			return writeRecord(cmd.OutOrStdout(), rec, opts.output)
		},
	}
	parse.Flags().StringVarP(&opts.output, "output", "o", "json", "Output format: json or yaml")

	reportCmd := &cobra.Command{
		Use:   "report FILE...",
		Short: "Score several forms and write the spreadsheet report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := scoring.ParseEvaluationType(opts.evalType)
			if err != nil {
				return err
			}
			reader := docx.NewReader(opts.maxFileSize)
			records := make([]scoring.StudentRecord, 0, len(args))
			for _, path := range args {
				rec, err := parseFile(reader, path, t)
				if err != nil {
					return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
				}
				records = append(records, rec)
			}

			table := report.NewTable(records)
			if err := writeXLSXFile(opts.out, table); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.RenderText(table.Summary()))
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d students)\n", opts.out, table.Len())
			return nil
		},
	}
	reportCmd.Flags().StringVar(&opts.out, "out", service.ReportDisplayName, "Spreadsheet output path")

	root.AddCommand(parse, reportCmd)
	return root
}

func parseFile(reader *docx.Reader, path string, t scoring.EvaluationType) (scoring.StudentRecord, error) {
	data, err := reader.Load(path)
	if err != nil {
		return scoring.StudentRecord{}, err
	}
	return scoring.Parse(service.DocxDecoder, filepath.Base(path), data, t)
}

func writeRecord(w io.Writer, rec scoring.StudentRecord, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	case "yaml":
		data, err := yaml.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown output format: %s (must be json or yaml)", format)
	}
}

func writeXLSXFile(path string, table *report.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteXLSX(f, table); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
