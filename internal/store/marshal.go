package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/oced/internal/evaluator"
	"github.com/roach88/oced/internal/model"
)

// marshalAttrs converts attributes to canonical JSON TEXT for storage.
// Timestamps are written by instant name.
func marshalAttrs(attrs []model.Attr, t *model.TimeOrder) (string, error) {
	m := make(map[string]any, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case model.IntValue:
			m[a.Name] = int64(v)
		case model.StringValue:
			m[a.Name] = string(v)
		case model.TimeValue:
			m[a.Name] = t.Name(model.Instant(v))
		}
	}
	data, err := model.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal attributes: %w", err)
	}
	return string(data), nil
}

// unmarshalAttrs parses attribute JSON TEXT. Numbers stay json.Number to
// avoid float64 precision loss for values > 2^53.
func unmarshalAttrs(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	return m, nil
}

// marshalEntities converts violation entity refs to JSON TEXT.
func marshalEntities(refs []evaluator.EntityRef) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(refs); err != nil {
		return "", fmt.Errorf("marshal entities: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalEntities(data string) ([]evaluator.EntityRef, error) {
	var refs []evaluator.EntityRef
	if err := json.Unmarshal([]byte(data), &refs); err != nil {
		return nil, fmt.Errorf("unmarshal entities: %w", err)
	}
	return refs, nil
}

// marshalSchemaDef converts a schema definition to JSON TEXT.
// encoding/json sorts map keys, so equal definitions store equal text.
func marshalSchemaDef(def model.SchemaDef) (string, error) {
	data, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	return string(data), nil
}

func unmarshalSchemaDef(data string) (model.SchemaDef, error) {
	var def model.SchemaDef
	if err := json.Unmarshal([]byte(data), &def); err != nil {
		return model.SchemaDef{}, fmt.Errorf("unmarshal schema: %w", err)
	}
	return def, nil
}
