package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dbmask/internal/introspect"
	"dbmask/internal/pii"
	"dbmask/internal/report"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var validFormats = []string{"text", "json", "mermaid", "graphviz"}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Introspect the schema and report columns holding personal data",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringP("format", "f", "text", "Output format: text, json, mermaid, graphviz")
	scanCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	if !lo.Contains(validFormats, format) {
		return fmt.Errorf("invalid format '%s'. Valid formats: %s", format, strings.Join(validFormats, ", "))
	}

	ctx := cmd.Context()
	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	adapter, err := conn.Adapter(cfg.Database.Schema)
	if err != nil {
		return err
	}

	snapshot, err := introspect.New(adapter, cfg.Schema, logger).Introspect(ctx)
	if err != nil {
		return fmt.Errorf("failed to extract schema: %w", err)
	}

	annotated := pii.NewDetector(nil).Annotate(snapshot)

	var content string
	switch format {
	case "text":
		content = report.Text(annotated)
	case "json":
		b, err := json.MarshalIndent(annotated, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schema: %w", err)
		}
		content = string(b) + "\n"
	case "mermaid":
		content = report.Mermaid(annotated, time.Now())
	case "graphviz":
		content = report.Graphviz(annotated)
	}

	if output == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), content)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(output, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "PII report generated: %s\n", output)
	fmt.Fprintf(cmd.OutOrStdout(), "Format: %s\n", format)
	fmt.Fprintf(cmd.OutOrStdout(), "Tables: %d\n", len(annotated.Tables))
	return nil
}
