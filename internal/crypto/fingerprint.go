package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"meshwire/internal/domain"
)

// deviceIDBytes is how much of the public key digest becomes the device
// identifier: 8 bytes, 16 hex characters.
const deviceIDBytes = 8

// DeviceIDFor derives the stable device identifier from an X25519 public
// key. Every participant computes the same identifier for the same key.
func DeviceIDFor(pub domain.X25519Public) domain.DeviceID {
	sum := sha256.Sum256(pub.Slice())
	return domain.DeviceID(hex.EncodeToString(sum[:deviceIDBytes]))
}

// Fingerprint returns a short hex fingerprint of a public key for display
// and out-of-band comparison.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}
