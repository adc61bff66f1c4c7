package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/oced/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// DB, when set, persists results to a SQLite store.
	DB string

	// Zero values defer to the environment (see internal/config).
	Workers     int
	StepBudget  int64
	Timeout     time.Duration
	MaxObserves int
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the oced CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "oced",
		Short: "oced - bounded validation and model finding for object-centric event data",
		Long: `Validate object-centric event data instances against temporal and
referential invariants, and search bounded spaces for witnesses and
counterexamples to named predicates and assertions.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := opts.Config()
			if err != nil {
				return WrapExitError(ExitCommandError, ErrCodeInvalidConfig, err)
			}
			setupLogging(cmd.ErrOrStderr(), cfg, opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "SQLite database to persist results to (default $OCED_DB)")
	cmd.PersistentFlags().IntVar(&opts.Workers, "workers", 0, "search workers (default $OCED_WORKERS)")
	cmd.PersistentFlags().Int64Var(&opts.StepBudget, "step-budget", 0, "search step budget (default $OCED_STEP_BUDGET)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 0, "search wall-clock limit (default $OCED_TIMEOUT)")
	cmd.PersistentFlags().IntVar(&opts.MaxObserves, "max-observes", 0, "override the schema's per-event observe bound")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewImportXESCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewAnalyzeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Config loads the environment and applies flag overrides.
func (o *RootOptions) Config() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if o.DB != "" {
		cfg.DBPath = o.DB
	}
	if o.Workers > 0 {
		cfg.Workers = o.Workers
	}
	if o.StepBudget > 0 {
		cfg.StepBudget = o.StepBudget
	}
	if o.Timeout > 0 {
		cfg.Timeout = o.Timeout
	}
	if o.MaxObserves > 0 {
		cfg.MaxObserves = o.MaxObserves
	}
	return cfg, nil
}

// setupLogging installs the default slog handler. Logs go to stderr so
// JSON output on stdout stays parseable.
func setupLogging(w io.Writer, cfg config.Config, verbose bool) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
