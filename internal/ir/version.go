package ir

// Version constants for persisted formats.
const (
	// StoreVersion is bumped whenever the persisted representation of
	// checksums, action sequences or dependency edges changes. A mismatch
	// makes every object look "not compiled before".
	StoreVersion = "1"

	// EngineVersion is the folio engine version.
	EngineVersion = "0.1.0"
)
