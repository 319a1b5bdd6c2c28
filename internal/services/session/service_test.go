package session_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshwire/internal/crypto"
	"meshwire/internal/domain"
	"meshwire/internal/services/identity"
	"meshwire/internal/services/session"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// newPair returns session managers for two fresh identities.
func newPair(t *testing.T) (a, b *session.Service, aID, bID domain.DeviceIdentity) {
	t.Helper()
	idA, err := identity.New(t.TempDir(), "pw", quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idA.Close() })
	idB, err := identity.New(t.TempDir(), "pw", quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idB.Close() })

	return session.New(idA, 0, quietLogger()), session.New(idB, 0, quietLogger()),
		idA.Identity(), idB.Identity()
}

func TestGetOrCreate_BothSidesDeriveSameKey(t *testing.T) {
	a, b, aID, bID := newPair(t)

	sessAB, err := a.GetOrCreate(bID.ID, bID.XPub)
	require.NoError(t, err)
	sessBA, err := b.GetOrCreate(aID.ID, aID.XPub)
	require.NoError(t, err)

	assert.Equal(t, sessAB.Key, sessBA.Key)
	assert.Equal(t, sessAB.SessTag, sessBA.SessTag)
}

func TestGetOrCreate_Cached(t *testing.T) {
	a, _, _, bID := newPair(t)

	s1, err := a.GetOrCreate(bID.ID, bID.XPub)
	require.NoError(t, err)
	s2, err := a.GetOrCreate(bID.ID, bID.XPub)
	require.NoError(t, err)
	assert.Same(t, s1, s2)
}

func TestGetOrCreate_KeyMismatchBlocksUntilAuthorize(t *testing.T) {
	a, _, _, bID := newPair(t)

	sess, err := a.GetOrCreate(bID.ID, bID.XPub)
	require.NoError(t, err)

	// Same device id turns up with a different key: possible impersonation.
	_, imposterKey, err := crypto.GenerateX25519()
	require.NoError(t, err)
	_, err = a.GetOrCreate(bID.ID, imposterKey)
	require.ErrorIs(t, err, domain.ErrKeyMismatch)
	assert.True(t, sess.Invalidated())

	// Still blocked, even with the original key.
	_, err = a.GetOrCreate(bID.ID, bID.XPub)
	require.ErrorIs(t, err, domain.ErrKeyMismatch)
	_, err = a.Lookup(bID.ID)
	require.ErrorIs(t, err, domain.ErrKeyMismatch)

	// Out-of-band re-authentication clears the block.
	a.Authorize(bID.ID, bID.XPub)
	fresh, err := a.GetOrCreate(bID.ID, bID.XPub)
	require.NoError(t, err)
	assert.NotSame(t, sess, fresh)
}

func TestSeed_VerifiesAndDetectsKeyChange(t *testing.T) {
	a, b, _, bID := newPair(t)

	// A signed advertisement from B seeds cleanly.
	require.NoError(t, a.Seed(b.Advertisement()))
	sess, err := a.Lookup(bID.ID)
	require.NoError(t, err)
	require.NotNil(t, sess)

	// The same device advertising a new key is rejected and blocked.
	_, newKey, err := crypto.GenerateX25519()
	require.NoError(t, err)
	err = a.Seed(domain.Advertisement{Device: crypto.DeviceIDFor(newKey), Key: newKey})
	require.NoError(t, err) // different digest, different device: fine

	err = a.Seed(domain.Advertisement{Device: bID.ID, Key: newKey})
	require.ErrorIs(t, err, domain.ErrKeyMismatch)
}

func TestSeed_RejectsForgedIdentifier(t *testing.T) {
	a, _, _, _ := newPair(t)

	_, key, err := crypto.GenerateX25519()
	require.NoError(t, err)
	err = a.Seed(domain.Advertisement{Device: "0000000000000000", Key: key})
	require.ErrorIs(t, err, domain.ErrKeyMismatch)
}

func TestSeed_RejectsBadSignature(t *testing.T) {
	a, b, _, _ := newPair(t)

	adv := b.Advertisement()
	adv.Sig[0] ^= 0x01
	require.ErrorIs(t, a.Seed(adv), domain.ErrKeyMismatch)
}

func TestRecordFailure_ThresholdInvalidates(t *testing.T) {
	idA, err := identity.New(t.TempDir(), "pw", quietLogger())
	require.NoError(t, err)
	defer idA.Close()
	idB, err := identity.New(t.TempDir(), "pw", quietLogger())
	require.NoError(t, err)
	defer idB.Close()

	a := session.New(idA, 3, quietLogger())
	sess, err := a.GetOrCreate(idB.Identity().ID, idB.Identity().XPub)
	require.NoError(t, err)

	assert.False(t, a.RecordFailure(sess))
	assert.False(t, a.RecordFailure(sess))
	assert.True(t, a.RecordFailure(sess))
	assert.True(t, sess.Invalidated())

	// Renegotiation yields a usable replacement.
	fresh, err := a.GetOrCreate(idB.Identity().ID, idB.Identity().XPub)
	require.NoError(t, err)
	assert.False(t, fresh.Invalidated())
}

func TestPeers_ListsSeededPeers(t *testing.T) {
	a, b, _, bID := newPair(t)

	require.NoError(t, a.Seed(b.Advertisement()))
	assert.Equal(t, []domain.DeviceID{bID.ID}, a.Peers())
}
