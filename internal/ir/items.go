package ir

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeItem returns the canonical form of an item identifier.
//
// Identifiers are NFC normalized so the same file name typed on different
// platforms compares equal. Identifiers that look like paths are cleaned.
// Anything else is passed through unchanged apart from NFC.
func NormalizeItem(id string) string {
	id = norm.NFC.String(id)
	if strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return filepath.Clean(id)
	}
	return id
}

// NormalizeItems normalizes each identifier, preserving order.
// The result is never nil.
func NormalizeItems(items []string) []string {
	out := make([]string, len(items))
	for i, id := range items {
		out[i] = NormalizeItem(id)
	}
	return out
}
