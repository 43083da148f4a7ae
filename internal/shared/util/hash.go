package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// ShortDigest returns the first 12 hex digits of the SHA-256 of b. It lets
// logs correlate uploads without keeping the image.
func ShortDigest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:12]
}
