// Package ir provides the foundational value types for folio.
//
// This package contains type definitions and pure functions only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Attribute values are IRValue: no float types, so canonical JSON (and
//     therefore every checksum) is deterministic across platforms
//   - Content is either textual (held in memory) or binary (held by filename)
//   - Action sequences serialize to canonical JSON; structural comparison is
//     a comparison of their checksums
//   - All hashes are SHA-256 with a versioned domain prefix
package ir
