package instanceio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/oced/internal/model"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format by file extension. Unknown extensions
// are JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode parses and structurally validates a document.
func Decode(data []byte, format Format) (*Document, error) {
	jsonData := data
	if format == FormatYAML {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &FormatError{Message: "invalid YAML", Err: err}
		}
		var err error
		if jsonData, err = json.Marshal(raw); err != nil {
			return nil, &FormatError{Message: "YAML is not representable as JSON", Err: err}
		}
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, &FormatError{Message: "invalid JSON", Err: err}
	}
	if err := validateStructure(generic); err != nil {
		return nil, err
	}

	dec = json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, &FormatError{Message: "decode document", Err: err}
	}
	return &doc, nil
}

// Encode writes doc in the given format. JSON is indented.
func Encode(w io.Writer, doc *Document, format Format) error {
	if format == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// ReadFile loads an instance of s from path.
func ReadFile(s *model.Schema, path string) (*model.Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instance: %w", err)
	}
	doc, err := Decode(data, FormatFromPath(path))
	if err != nil {
		if fe, ok := err.(*FormatError); ok {
			fe.Source = path
		}
		return nil, err
	}
	return ToInstance(s, doc)
}

// WriteFile stores in at path in the format its extension selects.
func WriteFile(path string, in *model.Instance) error {
	var buf bytes.Buffer
	if err := Encode(&buf, FromInstance(in), FormatFromPath(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write instance: %w", err)
	}
	return nil
}
