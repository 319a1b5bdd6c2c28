package agree

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	"meshwire/internal/crypto"
	"meshwire/internal/domain"
)

// kdfInfo namespaces the derivation; bump the suffix on any wire-breaking
// change to the session construction.
var kdfInfo = []byte("meshwire/session/v1")

// SessionKey derives the 32-byte symmetric key and 4-byte session tag shared
// by two identities. shared is the raw ECDH secret; local and peer are the
// two static public keys, fed to HKDF in lexicographic order so both sides
// derive identically. The caller retains ownership of shared and should wipe
// it.
func SessionKey(shared []byte, local, peer domain.X25519Public) (key [32]byte, tag [domain.SessionTagSize]byte, err error) {
	lo, hi := local, peer
	if bytes.Compare(hi[:], lo[:]) < 0 {
		lo, hi = hi, lo
	}

	info := make([]byte, 0, len(kdfInfo)+64)
	info = append(info, kdfInfo...)
	info = append(info, lo[:]...)
	info = append(info, hi[:]...)

	r := hkdf.New(sha256.New, shared, nil, info)
	var okm [32 + domain.SessionTagSize]byte
	if _, err = io.ReadFull(r, okm[:]); err != nil {
		return key, tag, fmt.Errorf("derive session key: %w", err)
	}
	copy(key[:], okm[:32])
	copy(tag[:], okm[32:])
	crypto.Wipe(okm[:])
	return key, tag, nil
}

// NewSession builds the session object for a freshly derived key.
func NewSession(peer domain.DeviceID, peerKey domain.X25519Public, key [32]byte, tag [domain.SessionTagSize]byte) *domain.Session {
	return &domain.Session{
		Peer:      peer,
		PeerKey:   peerKey,
		Key:       key,
		SessTag:   tag,
		CreatedAt: time.Now().UTC(),
	}
}
