package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NormalizeSpace collapses repeated whitespace into a single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeSeatNumber is the canonical form of a passenger-facing seat label.
func NormalizeSeatNumber(raw string) string {
	return strings.ToUpper(NormalizeSpace(raw))
}

// ShortCode returns prefix plus 8 upper-case hex chars from a random UUID, e.g. "TKT-1A2B3C4D".
func ShortCode(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(id[:8])
}
