package pin_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Hussein-Mazeh/PinVault/internal/credential"
	"github.com/Hussein-Mazeh/PinVault/internal/hashengine"
	"github.com/Hussein-Mazeh/PinVault/internal/legacy/legacytest"
	"github.com/Hussein-Mazeh/PinVault/internal/pin"
	"github.com/Hussein-Mazeh/PinVault/krypto"
	"github.com/Hussein-Mazeh/PinVault/store"
)

var cheap = krypto.Argon2Params{MemoryKiB: 64, Time: 1, Parallelism: 1, KeyLen: 32}

func newEngine(t *testing.T, p krypto.Argon2Params) *hashengine.Engine {
	t.Helper()
	e, err := hashengine.New(p)
	require.NoError(t, err)
	return e
}

func newManager(t *testing.T, v store.Vault, opts ...pin.Option) *pin.Manager {
	t.Helper()
	m, err := pin.New(v, newEngine(t, cheap), opts...)
	require.NoError(t, err)
	return m
}

func observed(t *testing.T) (pin.Option, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return pin.WithLogger(zap.New(core)), logs
}

func mustValid(t *testing.T, m *pin.Manager, candidate string) bool {
	t.Helper()
	ok, err := m.IsValidPin([]byte(candidate))
	require.NoError(t, err)
	return ok
}

func TestEmptyVault(t *testing.T) {
	m := newManager(t, store.NewMemory())

	set, err := m.IsPinSet()
	require.NoError(t, err)
	assert.False(t, set)

	existed, err := m.RemovePin()
	require.NoError(t, err)
	assert.False(t, existed)

	set, err = m.IsPinSet()
	require.NoError(t, err)
	assert.False(t, set)

	_, err = m.IsValidPin([]byte("1234"))
	assert.ErrorIs(t, err, pin.ErrNoPinSet)

	err = m.ChangePin([]byte("1234"), []byte("5678"))
	assert.ErrorIs(t, err, pin.ErrNoPinSet)

	_, err = m.Format()
	assert.ErrorIs(t, err, pin.ErrNoPinSet)
}

func TestCreateValidateRemove(t *testing.T) {
	m := newManager(t, store.NewMemory())

	require.NoError(t, m.CreatePin([]byte("1234"), false))

	set, err := m.IsPinSet()
	require.NoError(t, err)
	assert.True(t, set)

	assert.True(t, mustValid(t, m, "1234"))
	assert.False(t, mustValid(t, m, "4321"))

	kind, err := m.Format()
	require.NoError(t, err)
	assert.Equal(t, credential.KindCurrent, kind)

	existed, err := m.RemovePin()
	require.NoError(t, err)
	assert.True(t, existed)

	set, err = m.IsPinSet()
	require.NoError(t, err)
	assert.False(t, set)
}

func TestCreateRejectsEmptyPin(t *testing.T) {
	m := newManager(t, store.NewMemory())
	assert.Error(t, m.CreatePin(nil, false))
}

func TestChangeFlow(t *testing.T) {
	m := newManager(t, store.NewMemory())

	require.NoError(t, m.CreatePin([]byte("1111"), false))
	require.NoError(t, m.ChangePin([]byte("1111"), []byte("2222")))

	assert.False(t, mustValid(t, m, "1111"))
	assert.True(t, mustValid(t, m, "2222"))

	err := m.ChangePin([]byte("wrong"), []byte("3333"))
	assert.ErrorIs(t, err, pin.ErrInvalidCredential)
	assert.True(t, mustValid(t, m, "2222"))
	assert.False(t, mustValid(t, m, "3333"))
}

func TestChangeWithWrongPinLeavesRecordUntouched(t *testing.T) {
	v := store.NewMemory()
	m := newManager(t, v)
	require.NoError(t, m.CreatePin([]byte("1111"), false))
	before, err := v.ReadAll()
	require.NoError(t, err)

	require.ErrorIs(t, m.ChangePin([]byte("9999"), []byte("2222")), pin.ErrInvalidCredential)

	after, err := v.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestForceCreate(t *testing.T) {
	m := newManager(t, store.NewMemory())

	require.NoError(t, m.CreatePin([]byte("1111"), false))
	require.NoError(t, m.CreatePin([]byte("9999"), true))

	assert.False(t, mustValid(t, m, "1111"))
	assert.True(t, mustValid(t, m, "9999"))

	require.NoError(t, m.CreatePin([]byte("9999"), true))
	assert.True(t, mustValid(t, m, "9999"))
}

func TestCreateWithoutForceReplaces(t *testing.T) {
	m := newManager(t, store.NewMemory())

	require.NoError(t, m.CreatePin([]byte("1111"), false))
	require.NoError(t, m.CreatePin([]byte("2222"), false))

	assert.False(t, mustValid(t, m, "1111"))
	assert.True(t, mustValid(t, m, "2222"))
}

func TestCreateUsesFreshSalt(t *testing.T) {
	v := store.NewMemory()
	m := newManager(t, v)

	require.NoError(t, m.CreatePin([]byte("1234"), false))
	first, err := v.ReadAll()
	require.NoError(t, err)
	require.NoError(t, m.CreatePin([]byte("1234"), true))
	second, err := v.ReadAll()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestLegacyMigration(t *testing.T) {
	v := store.NewMemory()
	require.NoError(t, v.WriteAll(legacytest.Bytes(t, "1234")))
	logOpt, logs := observed(t)
	m := newManager(t, v, logOpt)

	kind, err := m.Format()
	require.NoError(t, err)
	assert.Equal(t, credential.KindLegacy, kind)

	assert.True(t, mustValid(t, m, "1234"))
	assert.Equal(t, 1, logs.FilterMessage("legacy record detected").Len())
	assert.Equal(t, 1, logs.FilterMessage("legacy record migrated").Len())

	raw, err := v.ReadAll()
	require.NoError(t, err)
	rec, err := credential.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, credential.KindCurrent, rec.Kind)

	ok, err := newEngine(t, cheap).Verify(raw, []byte("1234"))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, mustValid(t, m, "1234"))
	assert.Equal(t, 1, logs.FilterMessage("legacy record detected").Len(), "second validation must not take the legacy path")
	assert.False(t, mustValid(t, m, "0000"))
}

func TestLegacyMigrationAllAlgorithms(t *testing.T) {
	for _, alg := range []string{krypto.PBKDF2HmacSHA1, krypto.PBKDF2HmacSHA256, krypto.PBKDF2HmacSHA512} {
		t.Run(alg, func(t *testing.T) {
			v := store.NewMemory()
			require.NoError(t, v.WriteAll(legacytest.Encode(t, legacytest.Record(t, "4711", alg))))
			m := newManager(t, v)

			assert.True(t, mustValid(t, m, "4711"))
			kind, err := m.Format()
			require.NoError(t, err)
			assert.Equal(t, credential.KindCurrent, kind)
		})
	}
}

func TestLegacyFailedAttemptDoesNotMutate(t *testing.T) {
	v := store.NewMemory()
	seed := legacytest.Bytes(t, "1234")
	require.NoError(t, v.WriteAll(seed))
	m := newManager(t, v)

	assert.False(t, mustValid(t, m, "0000"))

	raw, err := v.ReadAll()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(seed, raw))

	kind, err := m.Format()
	require.NoError(t, err)
	assert.Equal(t, credential.KindLegacy, kind)
}

func TestChangePinFromLegacy(t *testing.T) {
	v := store.NewMemory()
	require.NoError(t, v.WriteAll(legacytest.Bytes(t, "1234")))
	m := newManager(t, v)

	require.NoError(t, m.ChangePin([]byte("1234"), []byte("5678")))
	assert.True(t, mustValid(t, m, "5678"))
	assert.False(t, mustValid(t, m, "1234"))
}

func TestCorruptRecordPropagatesDecodeError(t *testing.T) {
	v := store.NewMemory()
	require.NoError(t, v.WriteAll([]byte("garbage that is neither format")))
	m := newManager(t, v)

	_, err := m.IsValidPin([]byte("1234"))
	assert.ErrorIs(t, err, credential.ErrMalformedHash)

	err = m.ChangePin([]byte("1234"), []byte("5678"))
	assert.ErrorIs(t, err, credential.ErrMalformedHash)

	raw, err := v.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []byte("garbage that is neither format"), raw)
}

func TestParamUpgradeOnlyOnSuccess(t *testing.T) {
	v := store.NewMemory()
	old := newManager(t, v)
	require.NoError(t, old.CreatePin([]byte("1234"), false))
	before, err := v.ReadAll()
	require.NoError(t, err)

	stronger := cheap
	stronger.MemoryKiB = 128
	upgraded, err := pin.New(v, newEngine(t, stronger), pin.WithParamUpgrade(true))
	require.NoError(t, err)

	ok, err := upgraded.IsValidPin([]byte("0000"))
	require.NoError(t, err)
	assert.False(t, ok)
	after, err := v.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	ok, err = upgraded.IsValidPin([]byte("1234"))
	require.NoError(t, err)
	assert.True(t, ok)

	raw, err := v.ReadAll()
	require.NoError(t, err)
	rec, err := credential.DecodeCurrent(raw)
	require.NoError(t, err)
	assert.Equal(t, uint32(128), rec.Params.MemoryKiB)
}

func TestWithoutParamUpgradeRecordIsKept(t *testing.T) {
	v := store.NewMemory()
	require.NoError(t, newManager(t, v).CreatePin([]byte("1234"), false))
	before, err := v.ReadAll()
	require.NoError(t, err)

	stronger := cheap
	stronger.MemoryKiB = 128
	m, err := pin.New(v, newEngine(t, stronger))
	require.NoError(t, err)
	assert.True(t, mustValid(t, m, "1234"))

	after, err := v.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// faultyVault fails selected operations with a storage error.
type faultyVault struct {
	store.Vault
	failRead, failWrite, failDelete bool
}

var errDisk = errors.New("disk on fire")

func (f *faultyVault) ReadAll() ([]byte, error) {
	if f.failRead {
		return nil, &store.Error{Op: "read", Identity: "pin", Err: errDisk}
	}
	return f.Vault.ReadAll()
}

func (f *faultyVault) WriteAll(b []byte) error {
	if f.failWrite {
		return &store.Error{Op: "write", Identity: "pin", Err: errDisk}
	}
	return f.Vault.WriteAll(b)
}

func (f *faultyVault) Delete() (bool, error) {
	if f.failDelete {
		return false, &store.Error{Op: "delete", Identity: "pin", Err: errDisk}
	}
	return f.Vault.Delete()
}

func TestStorageErrorsPropagate(t *testing.T) {
	fv := &faultyVault{Vault: store.NewMemory()}
	m := newManager(t, fv)
	require.NoError(t, m.CreatePin([]byte("1234"), false))

	fv.failRead = true
	_, err := m.IsValidPin([]byte("1234"))
	var serr *store.Error
	require.ErrorAs(t, err, &serr)
	assert.ErrorIs(t, err, errDisk)
	fv.failRead = false

	fv.failDelete = true
	_, err = m.RemovePin()
	assert.ErrorIs(t, err, errDisk)
	assert.ErrorIs(t, m.CreatePin([]byte("5678"), true), errDisk)
	fv.failDelete = false

	fv.failWrite = true
	assert.ErrorIs(t, m.CreatePin([]byte("5678"), false), errDisk)
	fv.failWrite = false

	assert.True(t, mustValid(t, m, "1234"))
}

func TestLegacyMigrationWriteFailureReportsError(t *testing.T) {
	fv := &faultyVault{Vault: store.NewMemory()}
	require.NoError(t, fv.WriteAll(legacytest.Bytes(t, "1234")))
	m := newManager(t, fv)

	seed, err := fv.ReadAll()
	require.NoError(t, err)

	fv.failWrite = true
	ok, err := m.IsValidPin([]byte("1234"))
	assert.False(t, ok)
	assert.ErrorIs(t, err, errDisk)

	fv.failWrite = false
	after, err := fv.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, seed, after)
	assert.True(t, mustValid(t, m, "1234"))
}

func TestChangePinWriteFailureKeepsOldPin(t *testing.T) {
	fv := &faultyVault{Vault: store.NewMemory()}
	m := newManager(t, fv)
	require.NoError(t, m.CreatePin([]byte("1111"), false))
	before, err := fv.ReadAll()
	require.NoError(t, err)

	fv.failWrite = true
	assert.ErrorIs(t, m.ChangePin([]byte("1111"), []byte("2222")), errDisk)
	fv.failWrite = false

	after, err := fv.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.True(t, mustValid(t, m, "1111"))
	assert.False(t, mustValid(t, m, "2222"))
}

func TestParamUpgradeWriteFailureKeepsRecord(t *testing.T) {
	fv := &faultyVault{Vault: store.NewMemory()}
	require.NoError(t, newManager(t, fv).CreatePin([]byte("1234"), false))
	before, err := fv.ReadAll()
	require.NoError(t, err)

	stronger := cheap
	stronger.MemoryKiB = 128
	m, err := pin.New(fv, newEngine(t, stronger), pin.WithParamUpgrade(true))
	require.NoError(t, err)

	fv.failWrite = true
	_, err = m.IsValidPin([]byte("1234"))
	assert.ErrorIs(t, err, errDisk)
	fv.failWrite = false

	after, err := fv.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestForceCreateSaltFailureKeepsRecord(t *testing.T) {
	v := store.NewMemory()
	require.NoError(t, newManager(t, v).CreatePin([]byte("1234"), false))

	m := newManager(t, v, pin.WithSaltGenerator(krypto.SaltGenerator{Rand: iotest.ErrReader(errDisk)}))
	assert.ErrorIs(t, m.CreatePin([]byte("9999"), true), errDisk)

	set, err := m.IsPinSet()
	require.NoError(t, err)
	assert.True(t, set)
	assert.True(t, mustValid(t, m, "1234"))
}

func TestManagerOverEncryptedFileVault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vault")
	key := bytes.Repeat([]byte{4}, 32)

	v, err := store.OpenFile(dir, "pin", key)
	require.NoError(t, err)
	require.NoError(t, v.WriteAll(legacytest.Bytes(t, "1234")))

	m := newManager(t, v)
	assert.True(t, mustValid(t, m, "1234"))

	reopened, err := store.OpenFile(dir, "pin", key)
	require.NoError(t, err)
	m2 := newManager(t, reopened)
	kind, err := m2.Format()
	require.NoError(t, err)
	assert.Equal(t, credential.KindCurrent, kind)
	assert.True(t, mustValid(t, m2, "1234"))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := pin.New(nil, newEngine(t, cheap))
	assert.Error(t, err)
	_, err = pin.New(store.NewMemory(), nil)
	assert.Error(t, err)
}
