package crypto

import "crypto/subtle"

// Wipe overwrites b with zeros in a constant-time friendly way. Best-effort:
// it reduces the window key material sits in memory, it cannot defeat GC
// copies.
func Wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	zero := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zero)
}
