package keyring

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Hussein-Mazeh/PinVault/krypto"
)

// FileKeyring stores one raw key per identity under Dir with owner-only
// permissions. It offers no hardware isolation and is the fallback on
// platforms without a system keychain.
type FileKeyring struct {
	Dir string
}

var _ Keyring = FileKeyring{}

func (f FileKeyring) path(identity string) string {
	return filepath.Join(f.Dir, identity+".key")
}

// GetOrCreateKey reads the identity's key file, creating it if absent. Two
// processes racing on creation both end up with the key that won the link.
func (f FileKeyring) GetOrCreateKey(identity string) ([]byte, error) {
	if err := checkIdentity(identity); err != nil {
		return nil, err
	}
	if f.Dir == "" {
		return nil, errors.New("key directory not specified")
	}

	key, err := f.read(identity)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}

	key, err = newKey()
	if err != nil {
		return nil, err
	}
	if err := f.create(identity, key); err != nil {
		krypto.Zeroize(key)
		if errors.Is(err, os.ErrExist) {
			return f.read(identity)
		}
		return nil, err
	}
	return key, nil
}

func (f FileKeyring) read(identity string) ([]byte, error) {
	key, err := os.ReadFile(f.path(identity))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read key file: %w", err)
	}
	if len(key) != krypto.DataKeySize {
		return nil, fmt.Errorf("key file for %q has unexpected length %d", identity, len(key))
	}
	return key, nil
}

// create writes key to a temp file and hard-links it into place so the key
// file is never observed half-written and an existing key is never replaced.
func (f FileKeyring) create(identity string, key []byte) error {
	tmp, err := os.CreateTemp(f.Dir, identity+"-*.key.tmp")
	if err != nil {
		return fmt.Errorf("create temp key: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(key); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp key: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp key: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp key: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp key: %w", err)
	}

	if err := os.Link(tmpPath, f.path(identity)); err != nil {
		if errors.Is(err, os.ErrExist) {
			return err
		}
		return fmt.Errorf("install key file: %w", err)
	}
	return nil
}

// DeleteKey removes the identity's key file.
func (f FileKeyring) DeleteKey(identity string) error {
	if err := checkIdentity(identity); err != nil {
		return err
	}
	if err := os.Remove(f.path(identity)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove key file: %w", err)
	}
	return nil
}
