//go:build !darwin

package keyring

import "path/filepath"

// Platform returns a FileKeyring rooted at <dir>/keys.
func Platform(dir string) Keyring {
	return FileKeyring{Dir: filepath.Join(dir, "keys")}
}

// Authenticate is unavailable on non-macOS platforms.
func Authenticate(reason string) error {
	return ErrUnsupported
}
