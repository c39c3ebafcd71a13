package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/paveg/tdsframe"
	"github.com/paveg/tdsframe/internal/explain"
	"github.com/paveg/tdsframe/internal/version"
	"github.com/spf13/cobra"
)

func (o *RootOptions) frame(cmd *cobra.Command, path string) (*tdsframe.Frame, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	f := tdsframe.FromPipeline(cmdContext(cmd), data, nil, o.logger)
	return f, f.Err()
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (o *RootOptions) planOptions() []tdsframe.PlanOption {
	return []tdsframe.PlanOption{tdsframe.WithConfig(o.config), tdsframe.WithLogger(o.logger)}
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sql <pipeline.yaml>",
		Short: "Print the SQL query of a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := rootOpts.frame(cmd, args[0])
			if err != nil {
				return err
			}
			sql, err := f.ToSQL(cmdContext(cmd), rootOpts.planOptions()...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sql)
			return err
		},
	}
}

// NewPureCommand creates the pure command.
func NewPureCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pure <pipeline.yaml>",
		Short: "Print the Pure query of a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := rootOpts.frame(cmd, args[0])
			if err != nil {
				return err
			}
			pure, err := f.ToPure(cmdContext(cmd), rootOpts.planOptions()...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), pure)
			return err
		},
	}
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	var ir bool
	cmd := &cobra.Command{
		Use:   "explain <pipeline.yaml>",
		Short: "Print the plan tree of a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := rootOpts.frame(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ir {
				_, err = fmt.Fprintln(out, f.Dump())
				return err
			}
			plan, err := f.Explain()
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				data, err := plan.ToJSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			return writeTree(out, plan.Root, 0)
		},
	}
	cmd.Flags().BoolVar(&ir, "ir", false, "dump the frame IR instead of the plan")
	return cmd
}

func writeTree(w io.Writer, n explain.PlanNode, depth int) error {
	cols := make([]string, len(n.Schema))
	for i, c := range n.Schema {
		cols[i] = c.Name + ": " + c.Type
	}
	line := strings.Repeat("  ", depth) + n.Op
	if n.Description != "" {
		line += " " + n.Description
	}
	if _, err := fmt.Fprintf(w, "%s [%s] %s\n", line, strings.Join(cols, ", "), n.Fingerprint); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := writeTree(w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

type columnOutput struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <pipeline.yaml>",
		Short: "Print the output columns of a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := rootOpts.frame(cmd, args[0])
			if err != nil {
				return err
			}
			columns := f.Schema().Columns()
			out := make([]columnOutput, len(columns))
			for i, c := range columns {
				out[i] = columnOutput{Name: c.Name, Type: c.Type.String()}
			}
			if rootOpts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}
			for _, c := range out {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.Name, c.Type); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Info()
			if rootOpts.Format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), info.String())
			return err
		},
	}
}
