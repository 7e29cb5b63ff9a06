package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/cobra"

	predicate "github.com/hugr-lab/airport-predicate"
	"github.com/hugr-lab/airport-predicate/catalog"
	"github.com/hugr-lab/airport-predicate/function"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Filter       string
	Windowed     bool
	Columns      []string
	Output       string // output file path, stdout when empty
	OutputFormat string // "ipc" | "jsonl"
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <arrow-file>",
		Short: "Filter an Arrow IPC stream file",
		Long: `Evaluate a DuckDB filter pushdown against every row of an Arrow IPC
stream file and write the matching rows.

Rows that cannot be evaluated are dropped and reported to the processing
log configured in the config file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Filter, "filter", "f", "", "filter pushdown JSON file")
	cmd.Flags().BoolVar(&opts.Windowed, "windowed", false, "evaluate with windowed keys")
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "columns to write (default all)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.OutputFormat, "output-format", "jsonl", "output format (ipc|jsonl)")

	return cmd
}

func runEval(cmd *cobra.Command, opts *EvalOptions, path string) (err error) {
	ctx := cmd.Context()
	mem := memory.DefaultAllocator

	fp, err := readFilter(opts.Filter)
	if err != nil {
		return err
	}
	schema, records, err := readArrowStream(path, mem)
	if err != nil {
		return err
	}
	defer releaseAll(records)

	plog, err := openProcessingLog(ctx, opts.config.ProcessingLog, opts.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := plog.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	shape := predicate.KeyShapePlain
	if opts.Windowed {
		shape = predicate.KeyShapeWindowed
	}
	pred, err := predicate.Compile(fp, schema, shape, predicate.Config{
		Logger:   opts.logger,
		OmitRows: opts.config.ProcessingLog.OmitRows,
	}, function.NewBuiltinRegistry(), plog)
	if err != nil {
		return err
	}

	input, err := array.NewRecordReader(schema, records)
	if err != nil {
		return err
	}
	defer input.Release()
	filtered, err := predicate.NewFilteredReader(pred, input, mem)
	if err != nil {
		return err
	}
	defer filtered.Release()

	var out io.Writer = cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	projected := catalog.ProjectSchema(schema, opts.Columns)
	writer, err := newRecordWriter(opts.OutputFormat, out, projected, mem)
	if err != nil {
		return err
	}

	var matched int64
	for filtered.Next() {
		rec := catalog.ProjectRecord(filtered.RecordBatch(), projected)
		matched += rec.NumRows()
		werr := writer.Write(rec)
		rec.Release()
		if werr != nil {
			_ = writer.Close()
			return fmt.Errorf("failed to write output: %w", werr)
		}
	}
	if err := filtered.Err(); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	var total int64
	for _, rec := range records {
		total += rec.NumRows()
	}
	opts.logger.Info("Evaluation completed",
		"expression", pred.Expression(),
		"rows", total,
		"matched", matched,
	)
	return nil
}
