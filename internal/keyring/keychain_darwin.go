//go:build darwin

package keyring

import (
	"errors"
	"fmt"

	keychain "github.com/keybase/go-keychain"

	"github.com/Hussein-Mazeh/PinVault/krypto"
)

const (
	keychainService = "com.pinvault.key"
	keychainLabel   = "PinVault encryption key"
)

// Keychain keeps vault keys in the macOS Keychain.
//
// Items are GenericPassword entries under keychainService with the identity
// as account. They are never synchronised to iCloud and are only readable
// while the device is unlocked (AccessibleWhenUnlockedThisDeviceOnly).
type Keychain struct{}

var _ Keyring = Keychain{}

// Platform returns the Keychain-backed keyring. dir is unused on macOS.
func Platform(dir string) Keyring { return Keychain{} }

func (Keychain) GetOrCreateKey(identity string) ([]byte, error) {
	if err := checkIdentity(identity); err != nil {
		return nil, err
	}

	data, err := keychain.GetGenericPassword(keychainService, identity, "", "")
	if err != nil {
		return nil, fmt.Errorf("read vault key from keychain: %w", err)
	}
	if len(data) != 0 {
		if len(data) != krypto.DataKeySize {
			return nil, fmt.Errorf("keychain key for %q has unexpected length %d", identity, len(data))
		}
		return data, nil
	}

	key, err := newKey()
	if err != nil {
		return nil, err
	}

	item := keychain.NewGenericPassword(keychainService, identity, keychainLabel, key, "")
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlockedThisDeviceOnly)

	if err := keychain.AddItem(item); err != nil {
		krypto.Zeroize(key)
		if errors.Is(err, keychain.ErrorDuplicateItem) {
			// Lost a creation race; the stored key wins.
			return Keychain{}.GetOrCreateKey(identity)
		}
		return nil, fmt.Errorf("add vault key to keychain: %w", err)
	}
	return key, nil
}

func (Keychain) DeleteKey(identity string) error {
	if err := checkIdentity(identity); err != nil {
		return err
	}
	query := keychain.NewGenericPassword(keychainService, identity, "", nil, "")
	if err := keychain.DeleteItem(query); err != nil && !errors.Is(err, keychain.ErrorItemNotFound) {
		return fmt.Errorf("remove vault key from keychain: %w", err)
	}
	return nil
}
