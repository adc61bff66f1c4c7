package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/oced/internal/instanceio"
	"github.com/roach88/oced/internal/model"
	"github.com/roach88/oced/internal/store"
)

// ExportFormats lists the formats export can write.
var ExportFormats = []string{"json", "yaml", "alloy"}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	As     string
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <db> <instance-id>",
		Short: "Export a stored instance as JSON, YAML or an Alloy module",
		Long: `Export an instance stored by validate, search, check or import-xes.

The instance id may be abbreviated to any unique prefix. The alloy format
writes a module with one fact per entity for the Alloy Analyzer.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "json", "export format (json|yaml|alloy)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to this file instead of stdout")

	return cmd
}

func runExport(opts *ExportOptions, dbPath, prefix string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if !slices.Contains(ExportFormats, opts.As) {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid export format %q: must be one of %v", opts.As, ExportFormats))
	}

	st, err := openExistingStore(formatter, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	in, id, err := loadStoredInstance(cmd.Context(), st, prefix)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeNotFound, err.Error())
	}
	formatter.VerboseLog("Exporting instance %s as %s", id, opts.As)

	var buf bytes.Buffer
	switch opts.As {
	case "alloy":
		err = instanceio.WriteAlloy(&buf, in)
	case "yaml":
		err = instanceio.Encode(&buf, instanceio.FromInstance(in), instanceio.FormatYAML)
	default:
		err = instanceio.Encode(&buf, instanceio.FromInstance(in), instanceio.FormatJSON)
	}
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error())
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, buf.Bytes(), 0644); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
		return nil
	}
	_, err = formatter.Writer.Write(buf.Bytes())
	return err
}

// openExistingStore opens a database that must already exist.
func openExistingStore(formatter *OutputFormatter, dbPath string) (*store.Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fail(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath))
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fail(formatter, ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("opening database: %v", err))
	}
	return st, nil
}

// loadStoredInstance resolves an id prefix and loads the instance.
func loadStoredInstance(ctx context.Context, st *store.Store, prefix string) (*model.Instance, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	id, err := st.ResolveInstanceID(ctx, prefix)
	if err != nil {
		return nil, "", err
	}
	in, err := st.LoadInstance(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return in, id, nil
}
