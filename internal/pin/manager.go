// Package pin manages the lifecycle of a single PIN credential stored in a
// vault: creation, removal, change, validation and the transparent upgrade
// of legacy records to the current format.
package pin

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Hussein-Mazeh/PinVault/internal/credential"
	"github.com/Hussein-Mazeh/PinVault/internal/hashengine"
	"github.com/Hussein-Mazeh/PinVault/internal/legacy"
	"github.com/Hussein-Mazeh/PinVault/krypto"
	"github.com/Hussein-Mazeh/PinVault/store"
)

var (
	// ErrNoPinSet is returned when an operation needs a stored PIN and none exists.
	ErrNoPinSet = errors.New("no pin set")
	// ErrInvalidCredential is returned when the old PIN does not match during a change.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Manager owns the credential record of one vault identity. All operations
// are serialised; use one Manager per identity.
type Manager struct {
	mu            sync.Mutex
	vault         store.Vault
	engine        *hashengine.Engine
	legacy        legacy.Codec
	salts         krypto.SaltGenerator
	log           *zap.Logger
	upgradeParams bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithSaltGenerator overrides the salt source.
func WithSaltGenerator(g krypto.SaltGenerator) Option {
	return func(m *Manager) { m.salts = g }
}

// WithParamUpgrade re-hashes current records whose Argon2 parameters differ
// from the engine's, after a successful validation.
func WithParamUpgrade(enabled bool) Option {
	return func(m *Manager) { m.upgradeParams = enabled }
}

// New binds a manager to an already opened vault and a hash engine.
func New(vault store.Vault, engine *hashengine.Engine, opts ...Option) (*Manager, error) {
	if vault == nil {
		return nil, errors.New("vault is required")
	}
	if engine == nil {
		return nil, errors.New("hash engine is required")
	}
	m := &Manager{
		vault:  vault,
		engine: engine,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// CreatePin hashes pin with a fresh salt and writes it as the only record.
// With force, any existing record is deleted first.
func (m *Manager) CreatePin(pin []byte, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createPin(pin, force)
}

func (m *Manager) createPin(pin []byte, force bool) error {
	record, err := m.encode(pin)
	if err != nil {
		return err
	}

	if force {
		if _, err := m.vault.Delete(); err != nil {
			return err
		}
	}

	if err := m.vault.WriteAll(record); err != nil {
		return err
	}

	m.log.Info("pin created", zap.Bool("force", force))
	return nil
}

// replacePin overwrites the stored record in place. WriteAll is an atomic
// replace, so a failed rewrite leaves the previous record readable.
func (m *Manager) replacePin(pin []byte) error {
	record, err := m.encode(pin)
	if err != nil {
		return err
	}
	return m.vault.WriteAll(record)
}

func (m *Manager) encode(pin []byte) ([]byte, error) {
	if len(pin) == 0 {
		return nil, errors.New("pin cannot be empty")
	}

	salt, err := m.salts.Generate()
	if err != nil {
		return nil, err
	}

	record, err := m.engine.Hash(pin, salt)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}
	return record, nil
}

// RemovePin deletes the record and reports whether one existed.
func (m *Manager) RemovePin() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existed, err := m.vault.Delete()
	if err != nil {
		return false, err
	}
	if existed {
		m.log.Info("pin removed")
	}
	return existed, nil
}

// ChangePin replaces the PIN after validating oldPin. A wrong oldPin leaves
// the stored record untouched.
func (m *Manager) ChangePin(oldPin, newPin []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok, err := m.validate(oldPin)
	if err != nil {
		return err
	}
	if !ok {
		m.log.Warn("pin change rejected")
		return ErrInvalidCredential
	}

	if err := m.replacePin(newPin); err != nil {
		return fmt.Errorf("replace pin: %w", err)
	}
	m.log.Info("pin changed")
	return nil
}

// IsValidPin checks candidate against the stored record. A legacy record that
// verifies is rewritten in the current format before returning true; a failed
// attempt never touches storage.
func (m *Manager) IsValidPin(candidate []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validate(candidate)
}

// IsPinSet reports whether a record exists.
func (m *Manager) IsPinSet() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vault.Exists()
}

// Format reports the format of the stored record without verifying anything.
func (m *Manager) Format() (credential.Kind, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.load()
	if err != nil {
		return credential.KindUnknown, err
	}
	return rec.Kind, nil
}

func (m *Manager) load() (credential.Record, error) {
	raw, err := m.vault.ReadAll()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return credential.Record{}, ErrNoPinSet
		}
		return credential.Record{}, err
	}
	defer krypto.Zeroize(raw)

	rec, err := credential.Decode(raw)
	if err != nil {
		return credential.Record{}, fmt.Errorf("decode stored record: %w", err)
	}
	return rec, nil
}

func (m *Manager) validate(candidate []byte) (bool, error) {
	rec, err := m.load()
	if err != nil {
		return false, err
	}

	switch rec.Kind {
	case credential.KindCurrent:
		return m.validateCurrent(rec.Current, candidate)
	case credential.KindLegacy:
		return m.migrate(rec.Legacy, candidate)
	default:
		return false, fmt.Errorf("%w: unknown record kind %d", credential.ErrMalformedHash, rec.Kind)
	}
}

func (m *Manager) validateCurrent(rec credential.Current, candidate []byte) (bool, error) {
	ok, err := m.engine.VerifyRecord(rec, candidate)
	if err != nil || !ok {
		return false, err
	}

	if m.upgradeParams && m.engine.NeedsRehash(rec) {
		if err := m.replacePin(candidate); err != nil {
			return false, fmt.Errorf("upgrade hash parameters: %w", err)
		}
		m.log.Info("pin re-hashed with current parameters",
			zap.Uint32("memoryKiB", m.engine.Params().MemoryKiB),
			zap.Uint32("time", m.engine.Params().Time))
	}
	return true, nil
}

// migrate verifies candidate against a legacy record and, on success,
// rewrites the vault in the current format.
func (m *Manager) migrate(rec credential.Legacy, candidate []byte) (bool, error) {
	m.log.Debug("legacy record detected", zap.String("algorithm", rec.Algorithm))

	ok, err := m.legacy.Verify(rec, candidate)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := m.replacePin(candidate); err != nil {
		return false, fmt.Errorf("migrate legacy record: %w", err)
	}
	m.log.Info("legacy record migrated", zap.Stringer("format", credential.KindCurrent))
	return true, nil
}
