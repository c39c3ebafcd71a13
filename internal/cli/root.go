// Package cli implements the tdsframe command line: it reads a YAML pipeline
// document and prints the SQL, Pure, plan or schema of the frame it describes.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/paveg/tdsframe/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Pretty     bool
	Format     string // "json" | "text"

	config config.Config
	logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the tdsframe CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tdsframe",
		Short: "Plan tabular data frames as SQL or Pure",
		Long: `tdsframe turns a YAML pipeline document into the SQL or Pure query
a Legend engine runs for it.

Settings come from --config (JSON or YAML), then TDSFRAME_* environment
variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "configuration file (.json, .yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log planner steps to stderr")
	cmd.PersistentFlags().BoolVar(&opts.Pretty, "pretty", true, "render one clause per line")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewPureCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// load resolves the configuration and builds the logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg := config.NewConfig()
	if o.ConfigFile != "" {
		loaded, err := config.LoadFromFile(o.ConfigFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg = config.ApplyEnv(cfg)
	if cmd.Flags().Changed("pretty") {
		cfg.Pretty = o.Pretty
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	o.config = cfg

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.Level())
	if o.Verbose {
		zc = zap.NewDevelopmentConfig()
	}
	zc.OutputPaths = []string{"stderr"}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	o.logger = logger
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// readInput reads the pipeline document at path, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline: %w", err)
	}
	return data, nil
}
