package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix enables future algorithm migration.
const (
	DomainChecksum       = "folio/checksum/v1"
	DomainActionSequence = "folio/action-sequence/v1"
	DomainContent        = "folio/content/v1"
	DomainCacheKey       = "folio/cache/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashBytes hashes raw bytes under the given domain.
func HashBytes(domain string, data []byte) string {
	return hashWithDomain(domain, data)
}

// Checksum computes the structural fingerprint of v.
// v must be canonically marshalable (IRValue, string, int, bool, slices and maps of those).
func Checksum(v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	return hashWithDomain(DomainChecksum, canonical), nil
}

// MustChecksum is like Checksum but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustChecksum(v any) string {
	sum, err := Checksum(v)
	if err != nil {
		panic(err)
	}
	return sum
}

// CacheFingerprint derives the compiled-content cache fingerprint for a rep
// from the checksum of its item and the checksum of its action sequence.
func CacheFingerprint(itemChecksum, actionSequenceChecksum string) string {
	return hashWithDomain(DomainCacheKey, []byte(itemChecksum+"\x00"+actionSequenceChecksum))
}
