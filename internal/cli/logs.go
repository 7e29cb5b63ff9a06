package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hugr-lab/airport-predicate/processinglog"
)

// NewLogsCommand creates the logs command.
func NewLogsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <stream-file>",
		Short: "Print a processing log stream file",
		Long: `Print the events of a processing log stream file, as written by the
processing_log.stream destination.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runLogs(cmd *cobra.Command, opts *RootOptions, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader, err := processinglog.NewStreamReader(f)
	if err != nil {
		return err
	}
	defer reader.Close()

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		if opts.Format == "json" {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "%s %s %s\n", ev.Time.Format(time.RFC3339Nano), ev.ID, ev.Message)
		if ev.Record != nil {
			fmt.Fprintf(out, "\trecord: %s\n", *ev.Record)
		}
	}
}
