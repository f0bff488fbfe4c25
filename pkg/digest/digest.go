// Package digest computes short content digests for change detection and ETags.
package digest

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Size is the digest length in bytes.
const Size = 16

// Sum returns the hex BLAKE2b-128 digest of data.
func Sum(data []byte) string {
	h, err := blake2b.New(Size, nil)
	if err != nil {
		// Only reachable with an invalid size or key.
		panic(err)
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ETag formats a digest as a strong HTTP entity tag.
func ETag(data []byte) string {
	return `"` + Sum(data) + `"`
}
