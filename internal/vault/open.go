// Package vault provisions a PIN vault: it resolves the key from the
// keyring, opens the configured storage backend, and returns a ready
// pin.Manager. Nothing is initialised lazily.
package vault

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Hussein-Mazeh/PinVault/internal/config"
	"github.com/Hussein-Mazeh/PinVault/internal/hashengine"
	"github.com/Hussein-Mazeh/PinVault/internal/keyring"
	"github.com/Hussein-Mazeh/PinVault/internal/pin"
	"github.com/Hussein-Mazeh/PinVault/krypto"
	"github.com/Hussein-Mazeh/PinVault/store"
)

// Session is an opened vault.
type Session struct {
	Manager *pin.Manager
	Storage store.Vault
	closer  io.Closer
}

// Close releases the storage handle.
func (s *Session) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open resolves the vault key for cfg.Identity and binds a manager to the
// configured backend. kr may be nil to use the platform keyring.
func Open(cfg config.Config, kr keyring.Keyring, logger *zap.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if kr == nil {
		kr = keyring.Platform(cfg.Dir)
	}
	if cfg.RequirePresence {
		kr = keyring.PresenceGated{Keyring: kr, Reason: "Unlock PIN vault " + cfg.Identity}
	}

	key, err := kr.GetOrCreateKey(cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("resolve vault key: %w", err)
	}
	defer krypto.Zeroize(key)

	storage, closer, err := openStorage(cfg, key)
	if err != nil {
		return nil, err
	}

	engine, err := hashengine.New(cfg.Argon2)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}

	mgr, err := pin.New(storage, engine,
		pin.WithLogger(logger.Named("pin")),
		pin.WithParamUpgrade(cfg.UpgradeParams),
	)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}

	logger.Debug("vault opened", zap.String("backend", string(cfg.Backend)))
	return &Session{Manager: mgr, Storage: storage, closer: closer}, nil
}

func openStorage(cfg config.Config, key []byte) (store.Vault, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendFile:
		v, err := store.OpenFile(cfg.Dir, cfg.Identity, key)
		if err != nil {
			return nil, nil, fmt.Errorf("open file vault: %w", err)
		}
		return v, nil, nil
	case config.BackendSQLite:
		v, err := store.OpenSQLite(cfg.DatabasePath(), cfg.Identity, key)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite vault: %w", err)
		}
		return v, v, nil
	default:
		return nil, nil, errors.New("unknown backend " + string(cfg.Backend))
	}
}
