package crypto

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeys(t *testing.T) *KeyManager {
	t.Helper()
	km := NewKeyManager(filepath.Join(t.TempDir(), "keys", "agentdeck.key"))
	require.NoError(t, km.Initialize())
	return km
}

func TestKeyManagerGeneratesAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentdeck.key")

	km := NewKeyManager(path)
	require.NoError(t, km.Initialize())
	require.NotNil(t, km.Identity())
	assert.True(t, strings.HasPrefix(km.PublicKey(), "age1"))
	assert.True(t, strings.HasSuffix(km.PublicKeyHint(), "..."))

	// A second manager on the same path loads the same identity.
	reloaded := NewKeyManager(path)
	require.NoError(t, reloaded.Initialize())
	assert.Equal(t, km.PublicKey(), reloaded.PublicKey())
}

func TestSealRoundTrip(t *testing.T) {
	sealer := NewSealer(newTestKeys(t))

	plaintext := []byte(`{"agents":{},"tasks":{},"events":[]}`)
	sealed, err := sealer.Seal(plaintext)
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.False(t, IsSealed(plaintext))

	unsealed, err := sealer.Unseal(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, unsealed)
}

func TestUnsealWithWrongIdentity(t *testing.T) {
	sealed, err := NewSealer(newTestKeys(t)).Seal([]byte("secret"))
	require.NoError(t, err)

	other := NewSealer(newTestKeys(t))
	_, err = other.Unseal(sealed)
	assert.Error(t, err)
}

func TestSealRequiresInitializedKeys(t *testing.T) {
	sealer := NewSealer(NewKeyManager(filepath.Join(t.TempDir(), "k")))
	_, err := sealer.Seal([]byte("x"))
	assert.Error(t, err)
	_, err = sealer.Unseal([]byte("x"))
	assert.Error(t, err)
}
