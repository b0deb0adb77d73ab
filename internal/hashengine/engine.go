// Package hashengine hashes and verifies PINs with Argon2id, producing
// self-describing current-format credential records.
package hashengine

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/Hussein-Mazeh/PinVault/internal/credential"
	"github.com/Hussein-Mazeh/PinVault/krypto"
)

// Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	params krypto.Argon2Params
}

// New returns an engine that hashes with p. Verification always uses the
// parameters embedded in the stored record.
func New(p krypto.Argon2Params) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("argon2 params: %w", err)
	}
	return &Engine{params: p}, nil
}

// Params returns the parameters used for new hashes.
func (e *Engine) Params() krypto.Argon2Params { return e.params }

// Hash derives an Argon2id hash of secret and encodes it as a current record.
func (e *Engine) Hash(secret, salt []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret is required")
	}

	key, err := krypto.DeriveKeyArgon2id(secret, salt, e.params)
	if err != nil {
		return nil, fmt.Errorf("derive hash: %w", err)
	}
	defer krypto.Zeroize(key)

	return credential.EncodeCurrent(credential.Current{
		ParamsVersion: credential.ParamsVersionArgon2id,
		Params:        e.params,
		Salt:          salt,
		Hash:          key,
	})
}

// Verify checks candidate against a stored record. A record that is not in
// the current format yields an error matching credential.ErrMalformedHash.
func (e *Engine) Verify(stored, candidate []byte) (bool, error) {
	rec, err := credential.DecodeCurrent(stored)
	if err != nil {
		return false, err
	}
	return e.VerifyRecord(rec, candidate)
}

// VerifyRecord checks candidate against an already decoded record.
func (e *Engine) VerifyRecord(rec credential.Current, candidate []byte) (bool, error) {
	if len(candidate) == 0 {
		return false, nil
	}

	computed, err := krypto.DeriveKeyArgon2id(candidate, rec.Salt, rec.Params)
	if err != nil {
		return false, fmt.Errorf("derive hash: %w", err)
	}
	defer krypto.Zeroize(computed)

	return subtle.ConstantTimeCompare(computed, rec.Hash) == 1, nil
}

// NeedsRehash reports whether rec was produced with parameters other than
// the engine's.
func (e *Engine) NeedsRehash(rec credential.Current) bool {
	return rec.ParamsVersion != credential.ParamsVersionArgon2id || rec.Params != e.params
}
