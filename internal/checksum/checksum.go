// Package checksum fingerprints document content for change detection and
// optimistic concurrency checks.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Of returns the checksum of a document's content.
func Of(content string) string { return Sum([]byte(content)) }

// Matches reports whether an If-Match style value names content's checksum.
// Surrounding quotes and a weak "W/" prefix are ignored.
func Matches(tag, content string) bool {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	tag = strings.Trim(tag, `"`)
	return tag != "" && tag == Of(content)
}
