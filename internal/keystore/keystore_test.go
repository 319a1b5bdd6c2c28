package keystore

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"meshwire/internal/domain"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestSoftwareBackend_GenerateThenLoad(t *testing.T) {
	dir := t.TempDir()

	b1, err := openSoftware(dir, "passphrase", quietLogger())
	require.NoError(t, err)
	id1, err := b1.GenerateOrLoad()
	require.NoError(t, err)
	require.Len(t, id1.ID.String(), 16)
	require.NoError(t, b1.Close())

	// A second backend over the same directory loads the same identity.
	b2, err := openSoftware(dir, "passphrase", quietLogger())
	require.NoError(t, err)
	id2, err := b2.GenerateOrLoad()
	require.NoError(t, err)
	require.Equal(t, id1.ID, id2.ID)
	require.Equal(t, id1.XPub, id2.XPub)
	require.Equal(t, id1.EdPub, id2.EdPub)
}

func TestSoftwareBackend_WrongPassphrase(t *testing.T) {
	dir := t.TempDir()

	b1, err := openSoftware(dir, "correct horse", quietLogger())
	require.NoError(t, err)
	_, err = b1.GenerateOrLoad()
	require.NoError(t, err)

	b2, err := openSoftware(dir, "battery staple", quietLogger())
	require.NoError(t, err)
	_, err = b2.GenerateOrLoad()
	require.ErrorIs(t, err, errWrongPassphrase)
}

func TestSoftwareBackend_AgreeAndSign(t *testing.T) {
	dir := t.TempDir()

	b, err := openSoftware(dir, "pw", quietLogger())
	require.NoError(t, err)
	id, err := b.GenerateOrLoad()
	require.NoError(t, err)

	peer, err := openSoftware(t.TempDir(), "pw", quietLogger())
	require.NoError(t, err)
	peerID, err := peer.GenerateOrLoad()
	require.NoError(t, err)

	// Both sides compute the same shared secret.
	s1, err := b.Agree(peerID.XPub)
	require.NoError(t, err)
	s2, err := peer.Agree(id.XPub)
	require.NoError(t, err)
	require.Equal(t, s1, s2)

	sig := b.Sign([]byte("advertisement"))
	require.NotEmpty(t, sig)
}

func TestSoftwareBackend_ClosedRefusesUse(t *testing.T) {
	dir := t.TempDir()

	b, err := openSoftware(dir, "pw", quietLogger())
	require.NoError(t, err)
	_, err = b.GenerateOrLoad()
	require.NoError(t, err)
	require.NoError(t, b.Close())

	var peer domain.X25519Public
	_, err = b.Agree(peer)
	require.Error(t, err)
}

func TestOpen_FallsBackToSoftware(t *testing.T) {
	// Hosts without a TPM runtime must still come up with an identity.
	b, err := Open(t.TempDir(), "pw", quietLogger())
	require.NoError(t, err)
	_, ok := b.(*softwareBackend)
	require.True(t, ok)
}

func TestOpen_NoDirectoryIsFatal(t *testing.T) {
	_, err := Open("", "pw", quietLogger())
	require.ErrorIs(t, err, domain.ErrNoKeyBackend)
}
