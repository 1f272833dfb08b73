package revision

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ConfigHash returns the BLAKE2b-16 (16-byte digest, hex-encoded) hash of a
// rendered config's raw bytes, used to authorise the netmiko HTTP-copy pull
// path (spec §6, §8 scenario 6).
func ConfigHash(config string) string {
	h, err := blake2b.New(16, nil)
	if err != nil {
		panic(err) // only fails for an invalid digest size, which 16 is not
	}
	h.Write([]byte(config))
	return hex.EncodeToString(h.Sum(nil))
}
