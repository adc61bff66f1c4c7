package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/oced/internal/instanceio"
	"github.com/roach88/oced/internal/report"
	"github.com/roach88/oced/internal/search"
)

// SearchOptions holds flags for the search and check commands.
type SearchOptions struct {
	*RootOptions
	Bound  string // "objects,events,observes,time"; empty uses the model scope
	Output string // write the instance found to this file
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search <model-dir> <predicate>",
		Short: "Find a witness for a named predicate within a bound",
		Long: `Search every instance within the bound, in canonical order, for one
that satisfies the predicate and every invariant.

Exit codes:
  0  witness found (printed)
  2  malformed model, unknown predicate or bad bound
  3  no witness within the bound
  4  resource exhausted before the bound was fully explored`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoal(opts, search.GoalWitness, args[0], args[1], cmd)
		},
	}
	addSearchFlags(cmd, opts)
	return cmd
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <model-dir> <assertion>",
		Short: "Look for a counterexample to a named assertion within a bound",
		Long: `Search every instance within the bound for one where the assertion is
false. Unless the assertion sets assume_invariants: false, only instances
satisfying every invariant are considered.

Exit codes:
  0  no counterexample within the bound
  1  counterexample found (printed)
  2  malformed model, unknown assertion or bad bound
  4  resource exhausted before the bound was fully explored`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoal(opts, search.GoalAssertion, args[0], args[1], cmd)
		},
	}
	addSearchFlags(cmd, opts)
	return cmd
}

func addSearchFlags(cmd *cobra.Command, opts *SearchOptions) {
	cmd.Flags().StringVarP(&opts.Bound, "bound", "b", "", "bound as objects,events,observes,time (default: the model's scope)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the instance found to this file (.json or .yaml)")
}

func runGoal(opts *SearchOptions, kind search.GoalKind, modelDir, name string, cmd *cobra.Command) error {
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

	var goal search.Goal
	if kind == search.GoalWitness {
		goal, err = m.WitnessGoal(name)
	} else {
		goal, err = m.AssertionGoal(name)
	}
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeUnknownGoal, err.Error())
	}

	var bound search.Bound
	if opts.Bound != "" {
		if bound, err = search.ParseBound(opts.Bound); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeInvalidBound, err.Error())
		}
	}
	bound = m.BoundOr(bound)
	if bound.IsZero() {
		return fail(formatter, ExitCommandError, ErrCodeInvalidBound, "no --bound given and the model declares no scope")
	}
	formatter.VerboseLog("Searching %s %q within %s", kind, name, bound)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out, err := search.Search(ctx, schema, bound, goal, cfg.SearchOptions()...)
	switch {
	case errors.Is(err, context.Canceled):
		return fail(formatter, ExitResourceExhausted, ErrCodeSearchFailed, "search interrupted")
	case search.IsBoundError(err):
		return fail(formatter, ExitCommandError, ErrCodeInvalidBound, err.Error())
	case search.IsGoalError(err):
		return fail(formatter, ExitCommandError, ErrCodeUnknownGoal, err.Error())
	case err != nil:
		return fail(formatter, ExitCommandError, ErrCodeSearchFailed, err.Error())
	}

	rep := report.Search(out)

	st, err := openStore(formatter, cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		run, err := st.SaveRun(ctx, schema, out)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeStoreFailed, err.Error())
		}
		slog.Info("run stored", "run", run.ID, "instance", run.InstanceID)
	}

	if opts.Output != "" && out.Instance != nil {
		if err := instanceio.WriteFile(opts.Output, out.Instance); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeWriteFailed, err.Error())
		}
		formatter.VerboseLog("Wrote instance to %s", opts.Output)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(rep); err != nil {
			return err
		}
	} else if err := report.WriteSearchText(formatter.Writer, rep); err != nil {
		return err
	}

	return outcomeExit(kind, out)
}

// signalContext cancels on SIGINT or SIGTERM.
// Use command's context if available (for testing), otherwise create one.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping search", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}
