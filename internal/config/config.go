// Package config holds the settings a PinVault composition root resolves
// before opening a vault.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Hussein-Mazeh/PinVault/krypto"
	"github.com/Hussein-Mazeh/PinVault/store"
)

// Backend selects the vault storage implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

const (
	// DefaultIdentity names the vault when the caller does not choose one.
	DefaultIdentity = "pin"
	// DefaultDir is the vault directory relative to the working directory.
	DefaultDir = "./pin-vault"
	// DatabaseFile is the SQLite file name inside Dir.
	DatabaseFile = "vault.db"
)

// Config describes how to open a vault.
type Config struct {
	Identity        string
	Dir             string
	Backend         Backend
	Argon2          krypto.Argon2Params
	UpgradeParams   bool
	RequirePresence bool
	LogLevel        string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Identity: DefaultIdentity,
		Dir:      DefaultDir,
		Backend:  BackendFile,
		Argon2:   krypto.DefaultArgon2Params(),
		LogLevel: "warn",
	}
}

// GetenvOrDefault returns the trimmed value of key, or def when unset or blank.
func GetenvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// FromEnv overlays PINVAULT_* environment variables onto c.
func FromEnv(c Config) (Config, error) {
	c.Identity = GetenvOrDefault("PINVAULT_IDENTITY", c.Identity)
	c.Dir = GetenvOrDefault("PINVAULT_DIR", c.Dir)
	c.Backend = Backend(GetenvOrDefault("PINVAULT_BACKEND", string(c.Backend)))
	c.LogLevel = GetenvOrDefault("PINVAULT_LOG_LEVEL", c.LogLevel)

	var err error
	if c.Argon2.MemoryKiB, err = envUint32("PINVAULT_ARGON2_MEMORY_KIB", c.Argon2.MemoryKiB); err != nil {
		return c, err
	}
	if c.Argon2.Time, err = envUint32("PINVAULT_ARGON2_TIME", c.Argon2.Time); err != nil {
		return c, err
	}
	if c.UpgradeParams, err = envBool("PINVAULT_UPGRADE_PARAMS", c.UpgradeParams); err != nil {
		return c, err
	}
	if c.RequirePresence, err = envBool("PINVAULT_REQUIRE_PRESENCE", c.RequirePresence); err != nil {
		return c, err
	}
	return c, nil
}

func envUint32(key string, def uint32) (uint32, error) {
	raw := GetenvOrDefault(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return def, fmt.Errorf("parse %s: %w", key, err)
	}
	return uint32(v), nil
}

func envBool(key string, def bool) (bool, error) {
	raw := GetenvOrDefault(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

// Validate checks that c can be used to open a vault.
func (c Config) Validate() error {
	if err := store.ValidateIdentity(c.Identity); err != nil {
		return err
	}
	if strings.TrimSpace(c.Dir) == "" {
		return errors.New("vault directory is required")
	}
	switch c.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if err := c.Argon2.Validate(); err != nil {
		return fmt.Errorf("argon2 params: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// DatabasePath is where the SQLite backend keeps its file.
func (c Config) DatabasePath() string {
	return filepath.Join(c.Dir, DatabaseFile)
}

// NewLogger builds a console logger at the configured level, writing to stderr.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.With(zap.String("identity", c.Identity)), nil
}
