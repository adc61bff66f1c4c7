package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/oced/internal/compiler"
	"github.com/roach88/oced/internal/config"
	"github.com/roach88/oced/internal/instanceio"
	"github.com/roach88/oced/internal/model"
	"github.com/roach88/oced/internal/store"
)

// newFormatter returns a formatter writing to the command's streams.
// Verbose logs go to stderr to avoid corrupting JSON.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// fail reports an error through the formatter and returns it as an
// ExitError with the given exit code.
func fail(formatter *OutputFormatter, exitCode int, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}

// loadCompiledModel loads the model in dir, failing on its first error.
func loadCompiledModel(formatter *OutputFormatter, dir string) (*compiler.Model, error) {
	result, errs := LoadModel(dir, LoadModeFailFast)
	if len(errs) > 0 {
		var loadErr *LoadError
		if errors.As(errs[0], &loadErr) {
			return nil, fail(formatter, ExitCommandError, loadErr.Code, loadErr.Message)
		}
		return nil, fail(formatter, ExitCommandError, ErrCodeGeneric, errs[0].Error())
	}
	formatter.VerboseLog("Loaded model from %d CUE file(s) in %s", result.FileCount, dir)
	return result.Model, nil
}

// effectiveSchema applies the configured observe bound to the model schema.
func effectiveSchema(m *compiler.Model, cfg config.Config) *model.Schema {
	return m.Schema.WithMaxObserves(cfg.MaxObserves)
}

// instanceErrorCode classifies a failure to read an instance.
func instanceErrorCode(err error) string {
	if model.IsSchemaError(err) {
		return ErrCodeSchemaMismatch
	}
	if model.IsMalformedInstance(err) || instanceio.IsFormatError(err) {
		return ErrCodeMalformedInstance
	}
	return ErrCodeNotFound
}

// openStore opens the configured database, or returns nil when none is set.
func openStore(formatter *OutputFormatter, cfg config.Config) (*store.Store, error) {
	if cfg.DBPath == "" {
		return nil, nil
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fail(formatter, ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("opening database: %v", err))
	}
	formatter.VerboseLog("Persisting results to %s", cfg.DBPath)
	return st, nil
}
