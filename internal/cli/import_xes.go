package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/roach88/oced/internal/instanceio"
	"github.com/roach88/oced/internal/store"
)

// ImportXESOptions holds flags for the import-xes command.
type ImportXESOptions struct {
	*RootOptions
	instanceio.XESOptions
	Output string
}

// NewImportXESCommand creates the import-xes command.
func NewImportXESCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportXESOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import-xes <model-dir> <log.xes>",
		Short: "Convert an XES event log into an instance",
		Long: `Convert an XES event log into an instance of the model's schema.

Each trace becomes one case object created at the "origin" instant; each
event with a timestamp becomes an event that observes its case. The time
order is the origin followed by the distinct event timestamps.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportXES(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CaseType, "case-type", "", `object type for traces (default "case")`)
	cmd.Flags().StringVar(&opts.EventType, "event-type", "", "event type for events whose name is not declared (default: first event type)")
	cmd.Flags().StringVar(&opts.Relation, "relation", "", `relation tag for observes (default "involves" when declared)`)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the instance to this file (.json or .yaml)")

	return cmd
}

func runImportXES(opts *ImportXESOptions, modelDir, logPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := opts.Config()
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeInvalidConfig, err.Error())
	}

	m, err := loadCompiledModel(formatter, modelDir)
	if err != nil {
		return err
	}
	schema := effectiveSchema(m, cfg)

	f, err := os.Open(logPath)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("opening log: %v", err))
	}
	defer f.Close()

	in, err := instanceio.FromXES(f, schema, opts.XESOptions)
	if err != nil {
		return fail(formatter, ExitCommandError, instanceErrorCode(err), err.Error())
	}
	formatter.VerboseLog("Imported %s and %s from %s",
		english.Plural(in.NumObjects(), "case", ""),
		english.Plural(in.NumEvents(), "event", ""),
		logPath)

	st, err := openStore(formatter, cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		id, err := st.SaveInstance(cmd.Context(), in, store.SourceXES)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeStoreFailed, err.Error())
		}
		slog.Info("instance stored", "instance", id, "source", store.SourceXES)
	}

	if opts.Output != "" {
		if err := instanceio.WriteFile(opts.Output, in); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeWriteFailed, err.Error())
		}
		fmt.Fprintf(formatter.GetErrWriter(), "Wrote instance to %s\n", opts.Output)
		return nil
	}

	format := instanceio.FormatYAML
	if opts.Format == "json" {
		format = instanceio.FormatJSON
	}
	return instanceio.Encode(formatter.Writer, instanceio.FromInstance(in), format)
}
