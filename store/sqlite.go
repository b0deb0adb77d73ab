package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"

	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultDatabasePath is the relative path used when no database file is configured.
const DefaultDatabasePath = "vault/vault.db"

const createCredentialsTable = `
CREATE TABLE IF NOT EXISTS credentials (
	identity   TEXT     PRIMARY KEY,
	nonce      BLOB     NOT NULL,
	ciphertext BLOB     NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteVault keeps sealed records in a SQLite database, one row per identity.
// Several identities may share the same database file.
type SQLiteVault struct {
	db       *sql.DB
	identity string
	seal     *sealer
}

var _ Vault = (*SQLiteVault)(nil)

// OpenSQLite creates (if needed) and opens the database at path and binds it
// to identity. The caller must Close the returned vault.
func OpenSQLite(path, identity string, key []byte) (*SQLiteVault, error) {
	if path == "" {
		path = DefaultDatabasePath
	}
	if err := ValidateIdentity(identity); err != nil {
		return nil, err
	}
	s, err := newSealer(key, identity)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// Prime the connection so the file exists before chmod.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	if err := ensurePerm0600(path); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(createCredentialsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteVault{db: db, identity: identity, seal: s}, nil
}

// ensurePerm0600 restricts the database file to its owner on Unix systems.
func ensurePerm0600(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if err := os.Chmod(path, 0o600); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chmod database: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (v *SQLiteVault) Close() error {
	if v == nil || v.db == nil {
		return nil
	}
	return v.db.Close()
}

func (v *SQLiteVault) fail(op string, err error) error {
	return &Error{Op: op, Identity: v.identity, Err: err}
}

// ReadAll loads and decrypts the identity's row.
func (v *SQLiteVault) ReadAll() ([]byte, error) {
	var nonce, ciphertext []byte
	err := v.db.QueryRow(
		`SELECT nonce, ciphertext FROM credentials WHERE identity = ?`,
		v.identity,
	).Scan(&nonce, &ciphertext)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, v.fail("read", fmt.Errorf("select credential: %w", err))
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

// WriteAll replaces the identity's row in a single statement.
func (v *SQLiteVault) WriteAll(data []byte) error {
	if len(data) == 0 {
		return v.fail("write", errors.New("refusing to write empty record"))
	}

	nonce, ciphertext, err := v.seal.seal(data)
	if err != nil {
		return v.fail("write", err)
	}

	_, err = v.db.Exec(
		`INSERT INTO credentials (identity, nonce, ciphertext) VALUES (?, ?, ?)
		 ON CONFLICT(identity) DO UPDATE
		    SET nonce = excluded.nonce,
		        ciphertext = excluded.ciphertext,
		        updated_at = CURRENT_TIMESTAMP`,
		v.identity, nonce, ciphertext,
	)
	if err != nil {
		return v.fail("write", fmt.Errorf("upsert credential: %w", err))
	}
	return nil
}

// Delete removes the identity's row.
func (v *SQLiteVault) Delete() (bool, error) {
	res, err := v.db.Exec(`DELETE FROM credentials WHERE identity = ?`, v.identity)
	if err != nil {
		return false, v.fail("delete", fmt.Errorf("delete credential: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, v.fail("delete", fmt.Errorf("rows affected: %w", err))
	}
	return n > 0, nil
}

// Exists reports whether the identity has a non-empty row.
func (v *SQLiteVault) Exists() (bool, error) {
	var n int
	err := v.db.QueryRow(
		`SELECT COUNT(1) FROM credentials WHERE identity = ? AND length(ciphertext) > 0`,
		v.identity,
	).Scan(&n)
	if err != nil {
		return false, v.fail("exists", fmt.Errorf("count credentials: %w", err))
	}
	return n > 0, nil
}
