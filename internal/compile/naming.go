package compile

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashedName returns a stable, deterministic token for an object of the
// given class and id, used as the NAME in the naming table so that
// identical objects reused across terms resolve to identical tokens (spec
// §4.5 step 3).
func HashedName(class, id string) string {
	sum := sha256.Sum256([]byte(class + ":" + id))
	return "N_" + hex.EncodeToString(sum[:])[:12]
}
