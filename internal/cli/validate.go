package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/roach88/oced/internal/evaluator"
	"github.com/roach88/oced/internal/instanceio"
	"github.com/roach88/oced/internal/model"
	"github.com/roach88/oced/internal/report"
	"github.com/roach88/oced/internal/store"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model-dir> <instance>",
		Short: "Check an instance against every invariant",
		Long: `Validate an instance file (JSON or YAML, chosen by extension) against
the model's schema and the seven OCED invariants.

Exit codes:
  0  no violations
  1  violations found (listed on stdout)
  2  malformed model or instance`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, modelDir, instancePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := opts.Config()
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeInvalidConfig, err.Error())
	}

	m, err := loadCompiledModel(formatter, modelDir)
	if err != nil {
		return err
	}
	schema := effectiveSchema(m, cfg)

	in, err := instanceio.ReadFile(schema, instancePath)
	if err != nil {
		return fail(formatter, ExitCommandError, instanceErrorCode(err), err.Error())
	}
	formatter.VerboseLog("Read %s: %s, %s, %s", instancePath,
		english.Plural(in.NumObjects(), "object", ""),
		english.Plural(in.NumEvents(), "event", ""),
		english.Plural(in.NumObserves(), "observe", ""))

	violations := evaluator.Evaluate(schema, in)
	rep := report.Validation(in, violations)
	slog.Debug("instance evaluated", "instance", rep.InstanceHash, "violations", rep.Total)

	st, err := openStore(formatter, cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		if err := persistValidation(cmd.Context(), st, in, violations); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeStoreFailed, err.Error())
		}
	}

	if err := outputValidation(formatter, rep); err != nil {
		return err
	}
	return violationsExit(rep.Total)
}

// persistValidation stores the instance and its violations.
func persistValidation(ctx context.Context, st *store.Store, in *model.Instance, vs []evaluator.Violation) error {
	if ctx == nil {
		ctx = context.Background()
	}
	id, err := st.SaveInstance(ctx, in, store.SourceFile)
	if err != nil {
		return err
	}
	if err := st.SaveViolations(ctx, id, vs); err != nil {
		return err
	}
	slog.Info("validation stored", "instance", id, "violations", len(vs))
	return nil
}

// outputValidation writes the report in the configured format.
func outputValidation(formatter *OutputFormatter, rep *report.ValidationReport) error {
	if formatter.Format != "json" {
		return report.WriteValidationText(formatter.Writer, rep)
	}
	if rep.Valid {
		return formatter.Success(rep)
	}

	response := CLIResponse{
		Status: "error",
		Data:   rep,
		Error: &CLIError{
			Code:    rep.Groups[0].Code,
			Message: fmt.Sprintf("%s of %s", english.Plural(rep.Total, "violation", ""), english.Plural(len(rep.Groups), "invariant", "")),
		},
	}
	encoder := json.NewEncoder(formatter.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}
