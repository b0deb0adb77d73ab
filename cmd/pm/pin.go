package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Hussein-Mazeh/PinVault/auth"
	"github.com/Hussein-Mazeh/PinVault/internal/pin"
	"github.com/Hussein-Mazeh/PinVault/krypto"
)

func runPin(sub string, args []string) error {
	switch sub {
	case "set":
		return runPinSet(args)
	case "change":
		return runPinChange(args)
	case "check":
		return runPinCheck(args)
	case "remove":
		return runPinRemove(args)
	case "status":
		return runPinStatus(args)
	default:
		printPinUsage()
		return userError{msg: "unknown pin subcommand " + sub}
	}
}

func runPinSet(args []string) error {
	fs, cfg, err := vaultFlags("pin set")
	if err != nil {
		return err
	}
	var force, allowWeak bool
	fs.BoolVar(&force, "force", false, "replace an existing pin")
	fs.BoolVar(&allowWeak, "allow-weak", false, "accept a pin with an obvious pattern")
	if err := parseFlags(fs, cfg, args); err != nil {
		return err
	}

	s, logger, err := openVault(*cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer s.Close()

	if !force {
		set, err := s.Manager.IsPinSet()
		if err != nil {
			return err
		}
		if set {
			return userError{msg: "a pin is already set; use pm pin change or --force"}
		}
	}

	newPin, err := readNewPin("Enter new PIN: ", "Confirm new PIN: ", allowWeak)
	if err != nil {
		return err
	}
	defer krypto.Zeroize(newPin)

	if err := s.Manager.CreatePin(newPin, force); err != nil {
		return fmt.Errorf("store pin: %w", err)
	}
	fmt.Fprintf(stdout, "pin set for %s\n", cfg.Identity)
	return nil
}

func runPinChange(args []string) error {
	fs, cfg, err := vaultFlags("pin change")
	if err != nil {
		return err
	}
	if err := parseFlags(fs, cfg, args); err != nil {
		return err
	}

	s, logger, err := openVault(*cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer s.Close()

	oldPin, err := readSecret("Current PIN: ")
	if err != nil {
		return fmt.Errorf("read current pin: %w", err)
	}
	defer krypto.Zeroize(oldPin)

	newPin, err := readNewPin("New PIN: ", "Confirm new PIN: ", false)
	if err != nil {
		return err
	}
	defer krypto.Zeroize(newPin)

	switch err := s.Manager.ChangePin(oldPin, newPin); {
	case errors.Is(err, pin.ErrNoPinSet):
		return userError{msg: "no pin set; run pm pin set first"}
	case errors.Is(err, pin.ErrInvalidCredential):
		return userError{msg: "current pin is incorrect"}
	case err != nil:
		return err
	}
	fmt.Fprintf(stdout, "pin changed for %s\n", cfg.Identity)
	return nil
}

func runPinCheck(args []string) error {
	fs, cfg, err := vaultFlags("pin check")
	if err != nil {
		return err
	}
	if err := parseFlags(fs, cfg, args); err != nil {
		return err
	}

	s, logger, err := openVault(*cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer s.Close()

	candidate, err := readSecret("PIN: ")
	if err != nil {
		return fmt.Errorf("read pin: %w", err)
	}
	defer krypto.Zeroize(candidate)

	ok, err := s.Manager.IsValidPin(candidate)
	if errors.Is(err, pin.ErrNoPinSet) {
		return userError{msg: "no pin set"}
	}
	if err != nil {
		return err
	}
	if !ok {
		return userError{msg: "pin rejected"}
	}
	fmt.Fprintln(stdout, "pin accepted")
	return nil
}

func runPinRemove(args []string) error {
	fs, cfg, err := vaultFlags("pin remove")
	if err != nil {
		return err
	}
	if err := parseFlags(fs, cfg, args); err != nil {
		return err
	}

	s, logger, err := openVault(*cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer s.Close()

	existed, err := s.Manager.RemovePin()
	if err != nil {
		return err
	}
	if !existed {
		fmt.Fprintln(stdout, "no pin set")
		return nil
	}
	fmt.Fprintf(stdout, "pin removed for %s\n", cfg.Identity)
	return nil
}

func runPinStatus(args []string) error {
	fs, cfg, err := vaultFlags("pin status")
	if err != nil {
		return err
	}
	if err := parseFlags(fs, cfg, args); err != nil {
		return err
	}

	s, logger, err := openVault(*cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer s.Close()

	kind, err := s.Manager.Format()
	if errors.Is(err, pin.ErrNoPinSet) {
		fmt.Fprintln(stdout, "pin: not set")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "pin: set (%s format)\n", kind)
	return nil
}

// readNewPin prompts twice and applies the PIN policy. Weak PINs are refused
// unless allowWeak is set, in which case only a warning is printed.
func readNewPin(prompt, confirmPrompt string, allowWeak bool) ([]byte, error) {
	p, err := readSecret(prompt)
	if err != nil {
		return nil, fmt.Errorf("read pin: %w", err)
	}

	confirm, err := readSecret(confirmPrompt)
	if err != nil {
		krypto.Zeroize(p)
		return nil, fmt.Errorf("read confirmation pin: %w", err)
	}
	defer krypto.Zeroize(confirm)

	if !bytes.Equal(p, confirm) {
		krypto.Zeroize(p)
		return nil, userError{msg: "pins do not match"}
	}
	if err := auth.DefaultPinPolicy().Validate(p); err != nil {
		krypto.Zeroize(p)
		return nil, userError{msg: err.Error()}
	}
	if weak := auth.Weakness(string(p)); weak != "" {
		if !allowWeak {
			krypto.Zeroize(p)
			return nil, userError{msg: weak + "; choose another or pass --allow-weak"}
		}
		fmt.Fprintf(stdout, "warning: %s\n", weak)
	}
	return p, nil
}
