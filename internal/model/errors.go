package model

import (
	"errors"
	"fmt"
)

// SchemaError reports a reference to something the schema does not declare:
// an unknown object/event/relation type, an undeclared instant or attribute
// name, or an attribute value of the wrong kind.
//
// SchemaError is fatal to the request. It aborts before evaluation or search.
type SchemaError struct {
	// Kind names what was undeclared: "object_type", "event_type",
	// "relation", "instant", "attribute", "attribute_kind" or "schema".
	Kind string

	// Name is the offending name as it appeared in the input.
	Name string

	// Entity identifies the record that carried the reference (optional).
	Entity string

	// Message is a human-readable description.
	Message string
}

func (e *SchemaError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("schema error: %s: %s (%s %q)", e.Entity, e.Message, e.Kind, e.Name)
	}
	if e.Name != "" {
		return fmt.Sprintf("schema error: %s (%s %q)", e.Message, e.Kind, e.Name)
	}
	return fmt.Sprintf("schema error: %s", e.Message)
}

// MalformedInstanceError reports a structural inconsistency in instance data,
// such as a duplicate id or an observe referencing a nonexistent object.
type MalformedInstanceError struct {
	Entity  string
	Message string
}

func (e *MalformedInstanceError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("malformed instance: %s: %s", e.Entity, e.Message)
	}
	return fmt.Sprintf("malformed instance: %s", e.Message)
}

// IsSchemaError returns true if err is or wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsMalformedInstance returns true if err is or wraps a *MalformedInstanceError.
func IsMalformedInstance(err error) bool {
	var me *MalformedInstanceError
	return errors.As(err, &me)
}

func schemaErr(kind, name, entity, format string, args ...any) *SchemaError {
	return &SchemaError{Kind: kind, Name: name, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

func malformed(entity, format string, args ...any) *MalformedInstanceError {
	return &MalformedInstanceError{Entity: entity, Message: fmt.Sprintf(format, args...)}
}
