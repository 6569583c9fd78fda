package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainItemSet  = "pairsort/itemset/v1"
	DomainSnapshot = "pairsort/snapshot/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ItemSetKey computes the stable store key for an ordered list of items.
//
// Items are normalized with NormalizeItems first, so "./a.png" and "a.png"
// resolve to the same key. Order is preserved: the same files listed in a
// different order are a different sort, because the merge plan depends on
// input order.
func ItemSetKey(items []string) (string, error) {
	canonical, err := MarshalCanonical(NormalizeItems(items))
	if err != nil {
		return "", fmt.Errorf("ItemSetKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainItemSet, canonical), nil
}

// MustItemSetKey is like ItemSetKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustItemSetKey(items []string) string {
	key, err := ItemSetKey(items)
	if err != nil {
		panic(err)
	}
	return key
}

// Digest hashes an arbitrary canonical value under the snapshot domain.
// The order command uses it to fingerprint a finished order.
func Digest(v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("Digest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}
