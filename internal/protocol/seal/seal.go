package seal

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"meshwire/internal/domain"
)

// broadcastMarker is the addressing byte bound into the associated data for
// broadcast envelopes; direct envelopes bind the recipient identifier
// instead.
const broadcastMarker = 0xFF

// Seal encrypts plaintext under the session key for the given reserved
// counter, producing a wire envelope addressed from sender to recipient
// (domain.Broadcast for all peers).
func Seal(sess *domain.Session, sender, recipient domain.DeviceID, counter uint64, plaintext []byte) (domain.Envelope, error) {
	if sess.Invalidated() {
		return domain.Envelope{}, domain.ErrSessionExpired
	}

	aead, err := chacha20poly1305.New(sess.Key[:])
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("init aead: %w", err)
	}

	env := domain.Envelope{Sender: sender, Recipient: recipient}
	copy(env.Nonce[:domain.SessionTagSize], sess.SessTag[:])
	binary.BigEndian.PutUint64(env.Nonce[domain.SessionTagSize:], counter)

	sealed := aead.Seal(nil, env.Nonce[:], plaintext, aad(sender, recipient))
	split := len(sealed) - domain.TagSize
	env.Ciphertext = sealed[:split]
	copy(env.Tag[:], sealed[split:])
	return env, nil
}

// Open authenticates and decrypts an envelope against the session. It fails
// with domain.ErrReplayDetected when the embedded counter does not exceed
// the receive high watermark, and domain.ErrAuthenticationFailed when the
// tag does not verify or the envelope belongs to a different session. The
// watermark advances only after successful authentication.
func Open(sess *domain.Session, env domain.Envelope) ([]byte, error) {
	if sess.Invalidated() {
		return nil, domain.ErrSessionExpired
	}

	var tag [domain.SessionTagSize]byte
	copy(tag[:], env.Nonce[:domain.SessionTagSize])
	if tag != sess.SessTag {
		return nil, fmt.Errorf("nonce session tag mismatch: %w", domain.ErrAuthenticationFailed)
	}

	counter := binary.BigEndian.Uint64(env.Nonce[domain.SessionTagSize:])
	if err := sess.CheckReplay(counter); err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(sess.Key[:])
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+domain.TagSize)
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag[:]...)

	plaintext, err := aead.Open(nil, env.Nonce[:], sealed, aad(env.Sender, env.Recipient))
	if err != nil {
		return nil, domain.ErrAuthenticationFailed
	}

	sess.Advance(counter)
	return plaintext, nil
}

// aad binds sender identity and addressing into the authentication tag.
func aad(sender, recipient domain.DeviceID) []byte {
	out := make([]byte, 0, len(sender)+len(recipient)+2)
	out = append(out, byte(len(sender)))
	out = append(out, sender...)
	if recipient.IsBroadcast() {
		out = append(out, broadcastMarker)
	} else {
		out = append(out, byte(len(recipient)))
		out = append(out, recipient...)
	}
	return out
}
