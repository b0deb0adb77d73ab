package hashengine_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/PinVault/internal/credential"
	"github.com/Hussein-Mazeh/PinVault/internal/hashengine"
	"github.com/Hussein-Mazeh/PinVault/internal/legacy/legacytest"
	"github.com/Hussein-Mazeh/PinVault/krypto"
)

var cheap = krypto.Argon2Params{MemoryKiB: 64, Time: 1, Parallelism: 1, KeyLen: 32}

func newEngine(t *testing.T, p krypto.Argon2Params) *hashengine.Engine {
	t.Helper()
	e, err := hashengine.New(p)
	require.NoError(t, err)
	return e
}

func salt(t *testing.T) []byte {
	t.Helper()
	s, err := krypto.NewRandomSalt()
	require.NoError(t, err)
	return s
}

func TestHashVerifyRoundTrip(t *testing.T) {
	e := newEngine(t, cheap)

	for i := 0; i < 20; i++ {
		pin := []byte(fmt.Sprintf("%04d", i*487))
		stored, err := e.Hash(pin, salt(t))
		require.NoError(t, err)

		ok, err := e.Verify(stored, pin)
		require.NoError(t, err)
		assert.True(t, ok, "pin %s", pin)
	}
}

func TestVerifyRejectsOtherSecrets(t *testing.T) {
	e := newEngine(t, cheap)
	stored, err := e.Hash([]byte("1234"), salt(t))
	require.NoError(t, err)

	for _, candidate := range []string{"1235", "0000", "12345", "123", "4321"} {
		ok, err := e.Verify(stored, []byte(candidate))
		require.NoError(t, err)
		assert.False(t, ok, "candidate %s", candidate)
	}

	ok, err := e.Verify(stored, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSaltedAndDeterministic(t *testing.T) {
	e := newEngine(t, cheap)
	s := salt(t)

	a, err := e.Hash([]byte("1234"), s)
	require.NoError(t, err)
	b, err := e.Hash([]byte("1234"), s)
	require.NoError(t, err)
	c, err := e.Hash([]byte("1234"), salt(t))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestVerifyUsesEmbeddedParameters(t *testing.T) {
	older := newEngine(t, cheap)
	stored, err := older.Hash([]byte("1234"), salt(t))
	require.NoError(t, err)

	newer := cheap
	newer.Time = 2
	ok, err := newEngine(t, newer).Verify(stored, []byte("1234"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyLegacyRecordIsMalformed(t *testing.T) {
	e := newEngine(t, cheap)
	_, err := e.Verify(legacytest.Bytes(t, "1234"), []byte("1234"))
	assert.ErrorIs(t, err, credential.ErrMalformedHash)
}

func TestHashRejectsEmptySecret(t *testing.T) {
	_, err := newEngine(t, cheap).Hash(nil, salt(t))
	assert.Error(t, err)
}

func TestNewRejectsInvalidParams(t *testing.T) {
	_, err := hashengine.New(krypto.Argon2Params{})
	assert.Error(t, err)
}

func TestNeedsRehash(t *testing.T) {
	e := newEngine(t, cheap)
	stored, err := e.Hash([]byte("1234"), salt(t))
	require.NoError(t, err)
	rec, err := credential.DecodeCurrent(stored)
	require.NoError(t, err)

	assert.False(t, e.NeedsRehash(rec))

	stronger := cheap
	stronger.MemoryKiB = 128
	assert.True(t, newEngine(t, stronger).NeedsRehash(rec))
}
