package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Hussein-Mazeh/PinVault/internal/keyring"
)

func runKey(args []string) error {
	if len(args) == 0 {
		return userError{msg: "missing key subcommand"}
	}

	switch args[0] {
	case "presence":
		return runKeyPresence(args[1:])
	case "forget":
		return runKeyForget(args[1:])
	default:
		return userError{msg: "unknown key subcommand"}
	}
}

// runKeyPresence runs the user presence prompt that guards the vault key
// when --presence is set.
func runKeyPresence(args []string) error {
	fs, cfg, err := vaultFlags("key presence")
	if err != nil {
		return err
	}
	if err := parseFlags(fs, cfg, args); err != nil {
		return err
	}

	if err := keyring.Authenticate("Confirm presence for PIN vault " + cfg.Identity); err != nil {
		switch {
		case errors.Is(err, keyring.ErrUnsupported):
			return userError{msg: "user presence checks are not available on this device"}
		case errors.Is(err, keyring.ErrPresenceDenied),
			errors.Is(err, keyring.ErrPresenceCancelled),
			errors.Is(err, keyring.ErrPresenceTimeout):
			return userError{msg: err.Error()}
		}
		return fmt.Errorf("user presence check failed: %w", err)
	}
	fmt.Fprintln(stdout, "user presence confirmed")
	return nil
}

// runKeyForget removes the stored record and then the vault key. Without the
// key an old record could never be read again, so both go together.
func runKeyForget(args []string) error {
	fs, cfg, err := vaultFlags("key forget")
	if err != nil {
		return err
	}
	var yes bool
	fs.BoolVar(&yes, "yes", false, "confirm that the pin and key should be destroyed")
	if err := parseFlags(fs, cfg, args); err != nil {
		return err
	}
	if !yes {
		return userError{msg: "refusing to forget the vault key without --yes"}
	}
	if err := ensureVaultDir(cfg.Dir); err != nil {
		return err
	}

	s, logger, err := openVault(*cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	_, err = s.Manager.RemovePin()
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("remove pin: %w", err)
	}

	if err := platformKeyring(cfg.Dir).DeleteKey(cfg.Identity); err != nil {
		return fmt.Errorf("delete vault key: %w", err)
	}
	fmt.Fprintf(stdout, "pin and vault key removed for %s\n", cfg.Identity)
	return nil
}

func ensureVaultDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return userError{msg: fmt.Sprintf("vault directory not found: %s", filepath.Clean(dir))}
		}
		return fmt.Errorf("stat vault directory: %w", err)
	}
	if !info.IsDir() {
		return userError{msg: fmt.Sprintf("expected directory: %s", dir)}
	}
	return nil
}
