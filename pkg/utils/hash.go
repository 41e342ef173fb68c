// Package utils holds small helpers shared across packages.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a SHA-256 content hash.
type Digest [sha256.Size]byte

// SumSHA256 returns the SHA-256 digest of data.
func SumSHA256(data []byte) Digest {
	return sha256.Sum256(data)
}

// Short renders the leading bytes in hex, enough to tell revisions apart
// in logs.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:6])
}
