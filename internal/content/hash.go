package content

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the hex-encoded sha256 of content, used as a version
// token for database-stored post bodies.
func Hash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
