package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for hashing.
// This is the ONLY serialization used for content-addressed identity.
//
// Supported inputs: string, int, int64, bool, []any, map[string]any.
// Floats and null are rejected.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping
//  3. Strings are NFC normalized
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return writeCanonicalString(buf, val)
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareUTF16)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString writes s NFC-normalized, without HTML escaping.
// U+2028 and U+2029 are written literally as RFC 8785 requires.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. An escape preceded by an odd
// number of backslashes is literal text and is kept.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if i+6 <= len(data) && bytes.HasPrefix(data[i:], []byte(`\u202`)) && (data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

// compareUTF16 orders strings by UTF-16 code units as RFC 8785 requires.
// Go's native string comparison is by UTF-8 bytes, which differs for
// characters outside the BMP.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// canonicalForm converts an instance to the generic tree MarshalCanonical
// accepts. Instants are written by name so the form is independent of how
// the time order was constructed.
func canonicalForm(in *Instance) map[string]any {
	t := in.time
	attrs := func(as []Attr) map[string]any {
		m := make(map[string]any, len(as))
		for _, a := range as {
			var v any
			switch val := a.Value.(type) {
			case IntValue:
				v = int64(val)
			case StringValue:
				v = string(val)
			case TimeValue:
				v = t.Name(Instant(val))
			}
			m[a.Name] = map[string]any{"kind": string(a.Value.Kind()), "value": v}
		}
		return m
	}

	timeNames := make([]any, t.Len())
	for i, n := range t.names {
		timeNames[i] = n
	}

	objects := make([]any, len(in.objects))
	for i, o := range in.objects {
		m := map[string]any{
			"id":         o.ID,
			"type":       o.Type,
			"created":    t.Name(o.Created),
			"attributes": attrs(o.Attrs),
		}
		if o.IsDeleted() {
			m["deleted"] = t.Name(o.Deleted)
		}
		objects[i] = m
	}

	events := make([]any, len(in.events))
	for i, e := range in.events {
		events[i] = map[string]any{
			"id":         e.ID,
			"type":       e.Type,
			"timestamp":  t.Name(e.Timestamp),
			"attributes": attrs(e.Attrs),
		}
	}

	observes := make([]any, len(in.observes))
	for i, x := range in.observes {
		observes[i] = map[string]any{
			"id":       x.ID,
			"object":   x.Object,
			"event":    x.Event,
			"relation": x.Relation,
		}
	}

	return map[string]any{
		"time":     timeNames,
		"objects":  objects,
		"events":   events,
		"observes": observes,
	}
}
