package keystore

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"meshwire/internal/domain"
)

// errBackendUnavailable is returned by a backend constructor when its key
// source cannot be used on this host.
var errBackendUnavailable = errors.New("key backend unavailable")

// Backend is the capability surface of one key source. Private key material
// never crosses this interface: Agree and Sign run where the key lives.
type Backend interface {
	// GenerateOrLoad returns the device identity, generating and persisting
	// a keypair on first use and loading the same one thereafter.
	GenerateOrLoad() (domain.DeviceIdentity, error)

	// Agree computes the raw X25519 shared secret with a peer public key.
	Agree(peer domain.X25519Public) ([]byte, error)

	// Sign signs data with the identity's Ed25519 key.
	Sign(data []byte) []byte

	// Close wipes in-memory key material and releases the backend.
	Close() error
}

// Open selects the first usable backend: hardware module, then software.
// When neither is usable it returns domain.ErrNoKeyBackend, the one fatal
// startup condition.
func Open(dir, passphrase string, log *logrus.Logger) (Backend, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	if hw, err := openHardware(log); err == nil {
		log.Info("using hardware key backend")
		return hw, nil
	} else if !errors.Is(err, errBackendUnavailable) {
		return nil, fmt.Errorf("hardware key backend: %w", err)
	}

	sw, err := openSoftware(dir, passphrase, log)
	if err != nil {
		if errors.Is(err, errBackendUnavailable) {
			return nil, domain.ErrNoKeyBackend
		}
		return nil, fmt.Errorf("software key backend: %w", err)
	}
	log.Debug("using software key backend")
	return sw, nil
}
