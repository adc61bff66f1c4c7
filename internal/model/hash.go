package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainInstance = "oced/instance/v1"
	DomainSchema   = "oced/schema/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalJSON returns the RFC 8785 encoding of the instance.
// Two instances with equal canonical JSON are equal by value.
func CanonicalJSON(in *Instance) ([]byte, error) {
	return MarshalCanonical(canonicalForm(in))
}

// InstanceHash computes the content-addressed id of an instance.
func InstanceHash(in *Instance) (string, error) {
	data, err := CanonicalJSON(in)
	if err != nil {
		return "", fmt.Errorf("InstanceHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainInstance, data), nil
}

// SchemaHash computes the content-addressed id of a schema definition.
func SchemaHash(s *Schema) (string, error) {
	def := s.Def()
	names := func(ss []string) []any {
		out := make([]any, len(ss))
		for i, v := range ss {
			out[i] = v
		}
		return out
	}
	attrs := make(map[string]any, len(def.Attributes))
	for k, v := range def.Attributes {
		attrs[k] = string(v)
	}
	obj := map[string]any{
		"object_types":   names(def.ObjectTypes),
		"event_types":    names(def.EventTypes),
		"relation_types": names(s.Relations.Names()),
		"attributes":     attrs,
		"max_observes":   def.MaxObserves,
	}
	if lc := s.Lifecycle(); lc != nil {
		start, resolve := slices.Clone(lc.Start), slices.Clone(lc.Resolve)
		slices.Sort(start)
		slices.Sort(resolve)
		obj["lifecycle"] = map[string]any{
			"stateful": lc.Stateful,
			"start":    names(start),
			"resolve":  names(resolve),
		}
	}
	data, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SchemaHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSchema, data), nil
}

// MustInstanceHash is like InstanceHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustInstanceHash(in *Instance) string {
	h, err := InstanceHash(in)
	if err != nil {
		panic(err)
	}
	return h
}

// Hash returns the content-addressed id of the instance.
func (in *Instance) Hash() (string, error) { return InstanceHash(in) }
