package helpers

import (
	"crypto/sha256"
	"encoding/hex"
)

// shortDigestLen is the number of hex characters kept by ShortDigest.
const shortDigestLen = 8

// Digest returns the hex encoded SHA-256 of content.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ShortDigest returns the first eight hex characters of the SHA-256 of content, enough to tell
// script revisions apart in logs and source URLs.
func ShortDigest(content []byte) string {
	return Digest(content)[:shortDigestLen]
}
