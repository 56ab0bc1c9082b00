// utils/digest.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex returns the hex-encoded sha256 of b. Upload responses carry
// this as input_digest so a client can recognize re-uploads of the same
// log without keeping the bytes around.
func Sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
