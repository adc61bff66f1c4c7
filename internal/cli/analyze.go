package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <db> <instance-id>",
		Short: "Run process-mining queries over a stored instance",
		Long: `Report activity frequency, object interactions, temporal patterns and
process variants for a stored instance. The queries run as SQL against
the store.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runAnalyze(opts *RootOptions, dbPath, prefix string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	st, err := openExistingStore(formatter, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	id, err := st.ResolveInstanceID(ctx, prefix)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeNotFound, err.Error())
	}

	a, err := st.Analyze(ctx, id)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(a)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Instance %s\n\n", id)

	fmt.Fprintln(w, "Activity frequency:")
	for _, f := range a.ActivityFrequency {
		fmt.Fprintf(w, "  %-20s %d\n", f.Activity, f.Frequency)
	}

	fmt.Fprintln(w, "\nObject interactions:")
	for _, oi := range a.ObjectInteractions {
		fmt.Fprintf(w, "  %s ↔ %s: %d shared event(s)\n", oi.Object1, oi.Object2, oi.Events)
	}

	fmt.Fprintln(w, "\nTemporal patterns:")
	for _, p := range a.TemporalPatterns {
		fmt.Fprintf(w, "  %-20s %s .. %s (%d)\n", p.Activity, p.First, p.Last, p.Occurrences)
	}

	fmt.Fprintln(w, "\nProcess variants:")
	for _, v := range a.ProcessVariants {
		fmt.Fprintf(w, "  %d× %s\n", v.Frequency, strings.Join(v.Sequence, " → "))
	}
	return nil
}
