package legacy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/PinVault/internal/credential"
	"github.com/Hussein-Mazeh/PinVault/internal/legacy"
	"github.com/Hussein-Mazeh/PinVault/internal/legacy/legacytest"
	"github.com/Hussein-Mazeh/PinVault/krypto"
)

func TestVerifyAcrossAlgorithms(t *testing.T) {
	var codec legacy.Codec

	for _, alg := range []string{krypto.PBKDF2HmacSHA1, krypto.PBKDF2HmacSHA256, krypto.PBKDF2HmacSHA512} {
		t.Run(alg, func(t *testing.T) {
			rec, err := codec.Decode(legacytest.Encode(t, legacytest.Record(t, "1234", alg)))
			require.NoError(t, err)

			ok, err := codec.Verify(rec, []byte("1234"))
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = codec.Verify(rec, []byte("0000"))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestVerifyEmptyCandidate(t *testing.T) {
	var codec legacy.Codec
	ok, err := codec.Verify(legacytest.Record(t, "1234", krypto.PBKDF2HmacSHA256), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeRejectsCurrentRecord(t *testing.T) {
	var codec legacy.Codec
	_, err := codec.Decode([]byte{credential.FormatTag, 1, 2, 3})
	assert.ErrorIs(t, err, credential.ErrMalformedHash)
}

func TestVerifyUnknownAlgorithmIsMalformed(t *testing.T) {
	var codec legacy.Codec
	rec := legacytest.Record(t, "1234", krypto.PBKDF2HmacSHA256)
	rec.Algorithm = "bogus"

	_, err := codec.Verify(rec, []byte("1234"))
	assert.ErrorIs(t, err, credential.ErrMalformedHash)
}
