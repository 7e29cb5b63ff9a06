package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	predicate "github.com/hugr-lab/airport-predicate"
	"github.com/hugr-lab/airport-predicate/function"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Filter   string
	Windowed bool
}

// explainResult is the JSON form of explain output.
type explainResult struct {
	Expression string           `json:"expression"`
	KeyShape   string           `json:"key_shape"`
	Parameters []explainedParam `json:"parameters"`
	Program    string           `json:"program"`
}

type explainedParam struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Column   int    `json:"column"`
	Function bool   `json:"function"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <arrow-file>",
		Short: "Show how a filter compiles against a schema",
		Long: `Compile a DuckDB filter pushdown against the schema of an Arrow IPC
stream file and print the bound parameters and the generated program.

Compilation errors are reported with every cause.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Filter, "filter", "f", "", "filter pushdown JSON file")
	cmd.Flags().BoolVar(&opts.Windowed, "windowed", false, "compile for windowed keys")

	return cmd
}

func runExplain(cmd *cobra.Command, opts *ExplainOptions, path string) error {
	schema, err := readArrowSchema(path)
	if err != nil {
		return err
	}
	fp, err := readFilter(opts.Filter)
	if err != nil {
		return err
	}

	shape := predicate.KeyShapePlain
	if opts.Windowed {
		shape = predicate.KeyShapeWindowed
	}
	pred, err := predicate.Compile(fp, schema, shape, predicate.Config{Logger: opts.logger}, function.NewBuiltinRegistry(), nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		result := explainResult{
			Expression: pred.Expression(),
			KeyShape:   pred.KeyShape().String(),
			Program:    pred.Explain(),
		}
		for _, p := range pred.Parameters() {
			result.Parameters = append(result.Parameters, explainedParam{
				Name:     p.Name,
				Type:     typeName(p),
				Column:   p.Column,
				Function: p.Column == predicate.FunctionSlot,
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "expression: %s\n", pred.Expression())
	fmt.Fprintf(out, "key shape:  %s\n\n", pred.KeyShape())
	fmt.Fprint(out, pred.Explain())
	fmt.Fprintln(out)
	return nil
}

func typeName(p predicate.Parameter) string {
	if p.Type == nil {
		return "unknown"
	}
	return p.Type.String()
}
