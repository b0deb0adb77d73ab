package vault_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/PinVault/internal/config"
	"github.com/Hussein-Mazeh/PinVault/internal/keyring"
	"github.com/Hussein-Mazeh/PinVault/internal/vault"
	"github.com/Hussein-Mazeh/PinVault/krypto"
)

func testConfig(t *testing.T, backend config.Backend) config.Config {
	t.Helper()
	c := config.Default()
	c.Dir = t.TempDir()
	c.Backend = backend
	c.Argon2 = krypto.Argon2Params{MemoryKiB: 64, Time: 1, Parallelism: 1, KeyLen: 32}
	return c
}

func TestOpenBackendsPersistAcrossSessions(t *testing.T) {
	for _, backend := range []config.Backend{config.BackendFile, config.BackendSQLite} {
		t.Run(string(backend), func(t *testing.T) {
			cfg := testConfig(t, backend)
			kr := keyring.FileKeyring{Dir: cfg.Dir}

			s, err := vault.Open(cfg, kr, nil)
			require.NoError(t, err)
			require.NoError(t, s.Manager.CreatePin([]byte("2468"), false))
			require.NoError(t, s.Close())

			s, err = vault.Open(cfg, kr, nil)
			require.NoError(t, err)
			defer s.Close()

			ok, err := s.Manager.IsValidPin([]byte("2468"))
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestOpenWithForeignKeyFailsToRead(t *testing.T) {
	cfg := testConfig(t, config.BackendFile)

	s, err := vault.Open(cfg, keyring.Static(bytes.Repeat([]byte{1}, 32)), nil)
	require.NoError(t, err)
	require.NoError(t, s.Manager.CreatePin([]byte("2468"), false))

	s, err = vault.Open(cfg, keyring.Static(bytes.Repeat([]byte{2}, 32)), nil)
	require.NoError(t, err)
	_, err = s.Manager.IsValidPin([]byte("2468"))
	assert.Error(t, err)
}

func TestOpenRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t, "tape")
	_, err := vault.Open(cfg, keyring.FileKeyring{Dir: cfg.Dir}, nil)
	assert.ErrorContains(t, err, "invalid config")
}
