package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/oced/internal/compiler"
)

// LoadMode controls how errors are handled during model loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading a model from a directory.
type LoadResult struct {
	Spec      *compiler.ModelSpec
	Model     *compiler.Model // nil when loading failed
	CUEValue  cue.Value       // The raw CUE value for additional processing
	FileCount int             // Number of CUE files found
}

// LoadError represents an error that occurred during model loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Line    int       // set for validation errors, which carry no full position
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModel loads, validates and compiles the CUE model in dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all validation errors.
//
// A nil result means the directory could not be loaded at all; a result
// with a nil Model means the CUE parsed but the model is invalid.
func LoadModel(dir string, mode LoadMode) (*LoadResult, []error) {
	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("model directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing model directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	// Find CUE files
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	// Load CUE instances
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	// Check for load errors
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	// Build value from instance
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	spec, err := compiler.ParseModel(value)
	if err != nil {
		return result, []error{convertCompileError(err, "model")}
	}
	result.Spec = spec

	if verrs := compiler.Validate(spec); len(verrs) > 0 {
		if mode == LoadModeFailFast {
			verrs = verrs[:1]
		}
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = &LoadError{
				Code:    ve.Code,
				Message: fmt.Sprintf("%s: %s", ve.Field, ve.Message),
				Line:    ve.Line,
			}
		}
		return result, errs
	}

	m, err := compiler.Build(spec)
	if err != nil {
		return result, []error{convertCompileError(err, "model")}
	}
	result.Model = m
	return result, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
// Model validation codes (E120-E129) come from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeMalformedInstance = "E010" // instance file unreadable or structurally invalid
	ErrCodeSchemaMismatch    = "E011" // instance references something the schema lacks
	ErrCodeInvalidBound      = "E012" // bound missing or malformed
	ErrCodeUnknownGoal       = "E013" // no predicate or assertion by that name
	ErrCodeSearchFailed      = "E014" // predicate failed during search
	ErrCodeStoreFailed       = "E015" // database open, read or write failed
	ErrCodeInvalidConfig     = "E016" // environment or flag value rejected
	ErrCodeTestFailed        = "E017" // one or more scenarios failed
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.HasPrefix(field, "schema.lifecycle"):
		return compiler.ErrLifecycle
	case strings.HasPrefix(field, "schema.attributes"):
		return compiler.ErrAttributeKind
	case strings.HasPrefix(field, "schema.max_observes"):
		return compiler.ErrMaxObserves
	case strings.HasPrefix(field, "schema"):
		return compiler.ErrSchemaInvalid
	case strings.HasSuffix(field, ".min") || strings.Contains(field, ".min."),
		strings.HasPrefix(field, "scope"):
		return compiler.ErrBoundInvalid
	case strings.HasPrefix(field, "pred."), strings.HasPrefix(field, "assert."):
		return compiler.ErrExprCompile
	default:
		return ErrCodeGeneric
	}
}
