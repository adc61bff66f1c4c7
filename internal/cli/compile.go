package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/roach88/oced/internal/compiler"
	"github.com/roach88/oced/internal/model"
	"github.com/roach88/oced/internal/search"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// GoalSummary describes one compiled predicate or assertion.
type GoalSummary struct {
	Name             string        `json:"name"`
	Expr             string        `json:"expr"`
	Doc              string        `json:"doc,omitempty"`
	Min              *search.Bound `json:"min,omitempty"`
	AssumeInvariants *bool         `json:"assume_invariants,omitempty"`
}

// CompilationResult holds the compiled schema and goals.
type CompilationResult struct {
	SchemaHash string          `json:"schema_hash"`
	Schema     model.SchemaDef `json:"schema"`
	Predicates []GoalSummary   `json:"predicates"`
	Assertions []GoalSummary   `json:"assertions"`
	Scope      *search.Bound   `json:"scope,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model-dir>",
		Short: "Compile a CUE model and report its schema and goals",
		Long: `Compile the CUE model in a directory: the schema, named predicates,
named assertions and default scope.

Every validation error is reported, with its code and line.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled model as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, modelDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Use shared loader with collect-all mode
	loadResult, loadErrors := LoadModel(modelDir, LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return fail(formatter, ExitCommandError, loadErr.Code, loadErr.Message)
		}
		return fail(formatter, ExitCommandError, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, modelDir)

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result, err := summarize(loadResult.Model)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error())
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeModelToFile(result, opts.Output); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// summarize builds the serializable view of a compiled model.
func summarize(m *compiler.Model) (*CompilationResult, error) {
	hash, err := model.SchemaHash(m.Schema)
	if err != nil {
		return nil, err
	}
	result := &CompilationResult{
		SchemaHash: hash,
		Schema:     m.Schema.Def(),
		Predicates: []GoalSummary{},
		Assertions: []GoalSummary{},
	}
	for _, g := range m.Predicates {
		s := GoalSummary{Name: g.Name, Expr: g.Expr, Doc: g.Doc}
		if !g.Min.IsZero() {
			lo := g.Min
			s.Min = &lo
		}
		result.Predicates = append(result.Predicates, s)
	}
	for _, g := range m.Assertions {
		assume := g.AssumeInvariants
		result.Assertions = append(result.Assertions, GoalSummary{Name: g.Name, Expr: g.Expr, Doc: g.Doc, AssumeInvariants: &assume})
	}
	if !m.Scope.IsZero() {
		scope := m.Scope
		result.Scope = &scope
	}
	return result, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	def := result.Schema
	fmt.Fprintf(w, "✓ Compiled model %s\n\n", result.SchemaHash[:12])
	fmt.Fprintf(w, "Schema: %s, %s, %s, max %d observed per event\n",
		english.Plural(len(def.ObjectTypes), "object type", ""),
		english.Plural(len(def.EventTypes), "event type", ""),
		english.Plural(len(def.Attributes), "attribute", ""),
		def.MaxObserves)
	if lc := def.Lifecycle; lc != nil {
		fmt.Fprintf(w, "Lifecycle: %s starts on %v, resolves on %v\n", lc.Stateful, lc.Start, lc.Resolve)
	}
	if result.Scope != nil {
		fmt.Fprintf(w, "Scope: %s\n", result.Scope)
	}
	fmt.Fprintln(w)

	if len(result.Predicates) > 0 {
		fmt.Fprintln(w, "Predicates:")
		for _, p := range result.Predicates {
			fmt.Fprintf(w, "  %s: %s\n", p.Name, p.Expr)
		}
		fmt.Fprintln(w)
	}
	if len(result.Assertions) > 0 {
		fmt.Fprintln(w, "Assertions:")
		for _, a := range result.Assertions {
			fmt.Fprintf(w, "  %s: %s\n", a.Name, a.Expr)
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote compiled model to %s\n", outputFile)
	}
	return nil
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseLoadError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			switch {
			case loadErr.Pos.IsValid():
				fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
					loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
			case loadErr.Line > 0:
				fmt.Fprintf(formatter.Writer, "line %d\n", loadErr.Line)
			}
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeModelToFile writes the compilation result as indented JSON.
func writeModelToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling model: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
