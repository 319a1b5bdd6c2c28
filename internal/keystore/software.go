package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"meshwire/internal/crypto"
	"meshwire/internal/domain"
)

const identityFilename = "identity.json.enc"

// softwareBackend keeps the keypair in process memory for the process
// lifetime and persists it encrypted at rest so the device identifier stays
// stable across restarts.
type softwareBackend struct {
	dir        string
	passphrase string
	log        *logrus.Logger

	mu     sync.Mutex
	loaded bool
	closed bool
	id     domain.DeviceIdentity
	xPriv  domain.X25519Private
	edPriv domain.Ed25519Private
}

// keyFile is the plaintext layout sealed into the on-disk blob.
type keyFile struct {
	XPriv  domain.X25519Private  `json:"x_priv"`
	XPub   domain.X25519Public   `json:"x_pub"`
	EdPriv domain.Ed25519Private `json:"ed_priv"`
	EdPub  domain.Ed25519Public  `json:"ed_pub"`
}

func openSoftware(dir, passphrase string, log *logrus.Logger) (*softwareBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("no key directory configured: %w", errBackendUnavailable)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%v: %w", err, errBackendUnavailable)
	}
	return &softwareBackend{dir: dir, passphrase: passphrase, log: log}, nil
}

// GenerateOrLoad loads the persisted keypair when present, otherwise
// generates one and seals it to disk. The derived DeviceID is identical on
// every subsequent start.
func (b *softwareBackend) GenerateOrLoad() (domain.DeviceIdentity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return domain.DeviceIdentity{}, errors.New("key backend closed")
	}
	if b.loaded {
		return b.id, nil
	}

	path := filepath.Join(b.dir, identityFilename)
	blob, err := os.ReadFile(path)
	switch {
	case err == nil:
		raw, err := openSealed(b.passphrase, blob)
		if err != nil {
			return domain.DeviceIdentity{}, err
		}
		var kf keyFile
		if err := json.Unmarshal(raw, &kf); err != nil {
			crypto.Wipe(raw)
			return domain.DeviceIdentity{}, fmt.Errorf("decode identity file: %w", err)
		}
		crypto.Wipe(raw)
		b.install(kf)
		b.log.WithField("device", b.id.ID).Debug("loaded device identity")
		return b.id, nil

	case errors.Is(err, os.ErrNotExist):
		kf, err := b.generate()
		if err != nil {
			return domain.DeviceIdentity{}, err
		}
		raw, err := json.Marshal(kf)
		if err != nil {
			return domain.DeviceIdentity{}, err
		}
		blob, err := seal(b.passphrase, raw)
		crypto.Wipe(raw)
		if err != nil {
			return domain.DeviceIdentity{}, err
		}
		if err := writeFile(path, blob, 0o600); err != nil {
			return domain.DeviceIdentity{}, fmt.Errorf("persist identity: %w", err)
		}
		b.install(kf)
		b.log.WithField("device", b.id.ID).Info("generated device identity")
		return b.id, nil

	default:
		return domain.DeviceIdentity{}, fmt.Errorf("read identity file: %w", err)
	}
}

func (b *softwareBackend) generate() (keyFile, error) {
	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		return keyFile{}, err
	}
	edPriv, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		return keyFile{}, err
	}
	return keyFile{XPriv: xPriv, XPub: xPub, EdPriv: edPriv, EdPub: edPub}, nil
}

func (b *softwareBackend) install(kf keyFile) {
	b.xPriv = kf.XPriv
	b.edPriv = kf.EdPriv
	b.id = domain.DeviceIdentity{
		ID:    crypto.DeviceIDFor(kf.XPub),
		XPub:  kf.XPub,
		EdPub: kf.EdPub,
	}
	b.loaded = true
}

// Agree computes the X25519 shared secret in process memory.
func (b *softwareBackend) Agree(peer domain.X25519Public) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded || b.closed {
		return nil, errors.New("key backend not loaded")
	}
	return crypto.DH(b.xPriv, peer)
}

// Sign signs data with the in-memory Ed25519 key.
func (b *softwareBackend) Sign(data []byte) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded || b.closed {
		return nil
	}
	return crypto.SignEd25519(b.edPriv, data)
}

// Close wipes the private keys. The persisted file remains so the identity
// survives the restart.
func (b *softwareBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	crypto.Wipe(b.xPriv[:])
	crypto.Wipe(b.edPriv[:])
	b.closed = true
	return nil
}
