package domain

// DeviceID is the stable identifier of one mesh participant, derived from
// its X25519 public key (truncated SHA-256 digest, lowercase hex).
//
// The zero value addresses a broadcast.
type DeviceID string

// Broadcast is the recipient of a message addressed to every known peer.
const Broadcast DeviceID = ""

// BroadcastKey is the reserved conversation key under which broadcast
// messages are stored.
const BroadcastKey = "broadcast"

// String returns the string form of the device identifier.
func (d DeviceID) String() string { return string(d) }

// IsBroadcast reports whether the identifier addresses a broadcast.
func (d DeviceID) IsBroadcast() bool { return d == Broadcast }

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is a signing public key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is a signing private key (ed25519.PrivateKey layout).
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }

// DeviceIdentity is the public face of the local device: its identifier and
// public keys. Private key material stays inside the key store and is never
// carried on this type.
type DeviceIdentity struct {
	ID    DeviceID
	XPub  X25519Public
	EdPub Ed25519Public
}

// Advertisement is a discovery event: a peer announcing its identifier and
// public keys. Sig, when present, is an Ed25519 signature by EdKey over the
// X25519 public key, letting receivers reject spoofed announcements.
type Advertisement struct {
	Device DeviceID
	Key    X25519Public
	EdKey  Ed25519Public
	Sig    []byte
}

// NonceSize is the AEAD nonce length carried in every envelope:
// a 4-byte session tag followed by a big-endian 8-byte send counter.
const NonceSize = 12

// TagSize is the Poly1305 authentication tag length.
const TagSize = 16

// SessionTagSize is the length of the key-derived session tag prefixing
// every nonce.
const SessionTagSize = 4

// Envelope is the wire form of an encrypted message. It is produced by the
// seal layer, framed by the codec, and never stored.
type Envelope struct {
	Sender     DeviceID
	Recipient  DeviceID // Broadcast when addressed to all peers
	Nonce      [NonceSize]byte
	Ciphertext []byte
	Tag        [TagSize]byte
}
