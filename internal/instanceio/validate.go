package instanceio

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed instance.schema.json
var instanceSchemaJSON []byte

const instanceSchemaURL = "https://oced.dev/schemas/instance.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func instanceSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(instanceSchemaURL, bytes.NewReader(instanceSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add instance schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(instanceSchemaURL)
	})
	return compiledSchema, schemaErr
}

// FormatError reports a document that does not parse or does not match the
// instance document structure.
type FormatError struct {
	Source  string
	Message string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("malformed instance document %s: %s", e.Source, e.Message)
	}
	return "malformed instance document: " + e.Message
}

func (e *FormatError) Unwrap() error { return e.Err }

// IsFormatError returns true if err is or wraps a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// validateStructure checks a decoded JSON value against the instance
// document schema.
func validateStructure(v any) error {
	sch, err := instanceSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &FormatError{Message: leafMessage(ve), Err: err}
		}
		return &FormatError{Message: err.Error(), Err: err}
	}
	return nil
}

// leafMessage picks the most specific cause of a schema failure.
func leafMessage(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}
