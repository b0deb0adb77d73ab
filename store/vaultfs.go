package store

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	envelopeVersion = 1
	vaultFileSuffix = ".vault"
)

// envelope is the on-disk JSON wrapper around a sealed record.
type envelope struct {
	Version    int       `json:"version"`
	Identity   string    `json:"identity"`
	Nonce      string    `json:"nonce"`
	Ciphertext string    `json:"ciphertext"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// FileVault keeps the sealed record in <dir>/<identity>.vault.
type FileVault struct {
	dir      string
	identity string
	seal     *sealer
}

var _ Vault = (*FileVault)(nil)

// OpenFile binds a file vault to dir and identity, creating dir if needed.
func OpenFile(dir, identity string, key []byte) (*FileVault, error) {
	if dir == "" {
		return nil, errors.New("vault directory not specified")
	}
	if err := ValidateIdentity(identity); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create vault directory: %w", err)
	}
	s, err := newSealer(key, identity)
	if err != nil {
		return nil, err
	}
	return &FileVault{dir: dir, identity: identity, seal: s}, nil
}

// Path resolves the vault file path.
func (v *FileVault) Path() string {
	return filepath.Join(v.dir, v.identity+vaultFileSuffix)
}

func (v *FileVault) fail(op string, err error) error {
	return &Error{Op: op, Identity: v.identity, Err: err}
}

func (v *FileVault) loadEnvelope() (envelope, error) {
	var env envelope

	data, err := os.ReadFile(v.Path())
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version != envelopeVersion {
		return env, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	if env.Identity != v.identity {
		return env, fmt.Errorf("envelope belongs to %q", env.Identity)
	}
	return env, nil
}

// ReadAll loads and decrypts the record.
func (v *FileVault) ReadAll() ([]byte, error) {
	env, err := v.loadEnvelope()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, v.fail("read", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, v.fail("read", fmt.Errorf("decode nonce: %w", err))
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, v.fail("read", fmt.Errorf("decode ciphertext: %w", err))
	}

	plaintext, err := v.seal.open(nonce, ciphertext)
	if err != nil {
		return nil, v.fail("read", err)
	}
	if len(plaintext) == 0 {
		return nil, ErrNotFound
	}
	return plaintext, nil
}

// WriteAll seals data and replaces the vault file atomically with
// restrictive permissions.
func (v *FileVault) WriteAll(data []byte) error {
	if len(data) == 0 {
		return v.fail("write", errors.New("refusing to write empty record"))
	}

	nonce, ciphertext, err := v.seal.seal(data)
	if err != nil {
		return v.fail("write", err)
	}

	now := time.Now().UTC()
	env := envelope{
		Version:    envelopeVersion,
		Identity:   v.identity,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if prev, err := v.loadEnvelope(); err == nil && !prev.CreatedAt.IsZero() {
		env.CreatedAt = prev.CreatedAt
	}

	encoded, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return v.fail("write", fmt.Errorf("encode envelope: %w", err))
	}
	if err := v.replace(encoded); err != nil {
		return v.fail("write", err)
	}
	return nil
}

func (v *FileVault) replace(data []byte) error {
	tmp, err := os.CreateTemp(v.dir, v.identity+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp vault: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp vault: %w", err)
	}

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp vault: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp vault: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp vault: %w", err)
	}

	if err := os.Rename(tmpPath, v.Path()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace vault: %w", err)
	}
	return nil
}

// Delete removes the vault file.
func (v *FileVault) Delete() (bool, error) {
	err := os.Remove(v.Path())
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, v.fail("delete", err)
	}
}

// Exists reports whether a non-empty vault file is present.
func (v *FileVault) Exists() (bool, error) {
	info, err := os.Stat(v.Path())
	switch {
	case err == nil:
		return info.Mode().IsRegular() && info.Size() > 0, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, v.fail("exists", err)
	}
}
