package identity_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"meshwire/internal/domain"
	"meshwire/internal/services/identity"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestNew_StableIdentityAcrossRestarts(t *testing.T) {
	dir := t.TempDir()

	s1, err := identity.New(dir, "pw", quietLogger())
	require.NoError(t, err)
	id1 := s1.Identity()
	fp1 := s1.Fingerprint()
	require.NoError(t, s1.Close())

	s2, err := identity.New(dir, "pw", quietLogger())
	require.NoError(t, err)
	defer s2.Close()

	require.Equal(t, id1.ID, s2.Identity().ID)
	require.Equal(t, fp1, s2.Fingerprint())
}

func TestNew_NoBackendIsFatal(t *testing.T) {
	_, err := identity.New("", "pw", quietLogger())
	require.ErrorIs(t, err, domain.ErrNoKeyBackend)
}

func TestAgree_MutualSecret(t *testing.T) {
	a, err := identity.New(t.TempDir(), "pw", quietLogger())
	require.NoError(t, err)
	defer a.Close()
	b, err := identity.New(t.TempDir(), "pw", quietLogger())
	require.NoError(t, err)
	defer b.Close()

	sa, err := a.Agree(b.Identity().XPub)
	require.NoError(t, err)
	sb, err := b.Agree(a.Identity().XPub)
	require.NoError(t, err)
	require.Equal(t, sa, sb)
}
