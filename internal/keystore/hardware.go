package keystore

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// tpmDevices are the character devices probed for a TPM 2.0 module, resource
// manager first.
var tpmDevices = []string{"/dev/tpmrm0", "/dev/tpm0"}

// openHardware probes for a TPM 2.0 module. Key operations would be
// delegated to the module so private material never leaves it; without a TPM
// runtime linked in, a present device is reported and the software backend
// takes over.
func openHardware(log *logrus.Logger) (Backend, error) {
	for _, dev := range tpmDevices {
		if _, err := os.Stat(dev); err == nil {
			log.WithField("device", dev).Warn(
				"TPM device present but no TPM runtime is linked in; falling back to software key store")
			return nil, fmt.Errorf("%s: no TPM runtime: %w", dev, errBackendUnavailable)
		}
	}
	log.Debug("no TPM device found")
	return nil, errBackendUnavailable
}
