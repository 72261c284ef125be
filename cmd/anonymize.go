package cmd

import (
	"fmt"
	"os"
	"time"

	"dbmask/internal/anonymize"
	"dbmask/internal/database"
	"dbmask/internal/introspect"
	"dbmask/internal/pii"
	"dbmask/internal/plan"
	"dbmask/internal/sink"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var anonymizeCmd = &cobra.Command{
	Use:   "anonymize",
	Short: "Write an anonymized copy of every table",
	Long: `Introspects the schema, detects personal data, plans one strategy per
column and writes the anonymized rows to a SQLite file or JSON Lines.

Strategies per column can be overridden in the config file:

  anonymize:
    rules:
      - table: customers
        column: notes
        strategy: nullification`,
	RunE: runAnonymize,
}

func init() {
	anonymizeCmd.Flags().StringP("sink", "s", "sqlite", "Output sink: sqlite, jsonl")
	anonymizeCmd.Flags().StringP("output", "o", "anonymized.db", "Output path (\"-\" for jsonl on stdout)")
	anonymizeCmd.Flags().IntP("limit", "l", 0, "Maximum rows per table (0 reads all)")
	anonymizeCmd.Flags().IntP("workers", "w", 4, "Concurrent anonymization workers")
	anonymizeCmd.Flags().Int("batch-size", 500, "Rows per worker chunk")
	anonymizeCmd.Flags().Uint64("seed", 0, "Seed for reproducible output (0 is random)")

	viper.BindPFlag("anonymize.sink", anonymizeCmd.Flags().Lookup("sink"))
	viper.BindPFlag("anonymize.output", anonymizeCmd.Flags().Lookup("output"))
	viper.BindPFlag("anonymize.limit", anonymizeCmd.Flags().Lookup("limit"))
	viper.BindPFlag("anonymize.workers", anonymizeCmd.Flags().Lookup("workers"))
	viper.BindPFlag("anonymize.batch_size", anonymizeCmd.Flags().Lookup("batch-size"))

	rootCmd.AddCommand(anonymizeCmd)
}

func runAnonymize(cmd *cobra.Command, args []string) error {
	seed, _ := cmd.Flags().GetUint64("seed")
	start := time.Now()

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

	p, err := plan.Build(annotated, cfg.Anonymize.Rules)
	if err != nil {
		return err
	}

	out, err := sink.Open(cfg.Anonymize.Sink, cfg.Anonymize.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	batch := &anonymize.Batch{
		Workers:   cfg.Anonymize.Workers,
		ChunkSize: cfg.Anonymize.BatchSize,
		Seed:      seed,
		Logger:    logger,
	}

	var totalRows int
	for _, table := range annotated.Tables {
		rows, err := database.ReadRows(ctx, conn.DB, conn.Dialect, cfg.Database.Schema, table.Name, cfg.Anonymize.Limit)
		if err != nil {
			return err
		}

		masked, err := batch.Apply(ctx, rows, p[table.Name])
		if err != nil {
			return fmt.Errorf("failed to anonymize %s: %w", table.Name, err)
		}

		if err := out.WriteTable(ctx, table.TableInfo, masked); err != nil {
			return err
		}

		totalRows += len(masked.Rows)
		logger.Info("Anonymized table",
			zap.String("table", table.Name),
			zap.Int("rows", len(masked.Rows)))
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}

	w := cmd.ErrOrStderr()
	if cfg.Anonymize.Output != "-" {
		w = cmd.OutOrStdout()
		fmt.Fprintf(w, "Anonymized copy written: %s\n", cfg.Anonymize.Output)
		if info, err := os.Stat(cfg.Anonymize.Output); err == nil {
			fmt.Fprintf(w, "Size: %s\n", humanize.Bytes(uint64(info.Size())))
		}
	}
	fmt.Fprintf(w, "Tables: %s\n", humanize.Comma(int64(len(annotated.Tables))))
	fmt.Fprintf(w, "Rows: %s\n", humanize.Comma(int64(totalRows)))
	fmt.Fprintf(w, "Finished in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
