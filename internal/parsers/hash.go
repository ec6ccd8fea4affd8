package parsers

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
)

// HashText computes the deterministic content-hash document ID.
// Identical extracted text always yields the same ID, regardless of the
// file's path.
func HashText(text string) string {
	sum := md5.Sum([]byte(text)) //nolint:gosec // content fingerprint
	return hex.EncodeToString(sum[:])
}
