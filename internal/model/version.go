package model

// Version constants for the instance format and engine.
const (
	// FormatVersion is the instance document format version.
	FormatVersion = "1"

	// EngineVersion is the OCED engine version.
	EngineVersion = "0.1.0"
)
