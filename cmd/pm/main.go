package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Hussein-Mazeh/PinVault/internal/config"
	"github.com/Hussein-Mazeh/PinVault/internal/keyring"
	"github.com/Hussein-Mazeh/PinVault/internal/vault"
)

const cliVersion = "0.2.0"

type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	// readSecret and platformKeyring are swapped out by tests.
	readSecret      = promptPassword
	platformKeyring = keyring.Platform
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		handleError(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return userError{msg: "missing command"}
	}

	switch args[0] {
	case "version":
		fmt.Fprintln(stdout, cliVersion)
		return nil
	case "pin":
		if len(args) < 2 {
			printPinUsage()
			return userError{msg: "missing pin subcommand"}
		}
		return runPin(args[1], args[2:])
	case "key":
		return runKey(args[1:])
	default:
		printUsage()
		return userError{msg: "unknown command " + args[0]}
	}
}

func handleError(err error) {
	if err == nil {
		return
	}

	var uerr userError
	if errors.As(err, &uerr) {
		fmt.Fprintln(os.Stderr, uerr.Error())
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "unexpected error: %v\n", err)
	os.Exit(2)
}

// vaultFlags binds the flags every vault command accepts. Defaults come from
// PINVAULT_* so flags override the environment.
func vaultFlags(name string) (*flag.FlagSet, *config.Config, error) {
	cfg, err := config.FromEnv(config.Default())
	if err != nil {
		return nil, nil, userError{msg: err.Error()}
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "vault directory")
	fs.StringVar(&cfg.Identity, "identity", cfg.Identity, "vault identity")
	fs.Func("backend", "storage backend (file|sqlite)", func(v string) error {
		cfg.Backend = config.Backend(v)
		return nil
	})
	fs.BoolVar(&cfg.RequirePresence, "presence", cfg.RequirePresence, "require user presence before releasing the vault key")
	return fs, &cfg, nil
}

func parseFlags(fs *flag.FlagSet, cfg *config.Config, args []string) error {
	if err := fs.Parse(args); err != nil {
		return userError{msg: "invalid arguments: " + err.Error()}
	}
	if fs.NArg() != 0 {
		return userError{msg: "unexpected positional arguments"}
	}
	if err := cfg.Validate(); err != nil {
		return userError{msg: err.Error()}
	}
	return nil
}

// openVault builds the logger and opens the configured vault. The caller
// closes the session and syncs the logger.
func openVault(cfg config.Config) (*vault.Session, *zap.Logger, error) {
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	s, err := vault.Open(cfg, platformKeyring(cfg.Dir), logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("open vault: %w", err)
	}
	return s, logger, nil
}

func promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func printUsage() {
	fmt.Fprintln(stderr, "Usage: pm <command>")
	fmt.Fprintln(stderr, "Commands:")
	fmt.Fprintln(stderr, "  version")
	fmt.Fprintln(stderr, "  pin set [--force] [--allow-weak]")
	fmt.Fprintln(stderr, "  pin change | check | remove | status")
	fmt.Fprintln(stderr, "  key presence | forget")
	fmt.Fprintln(stderr, "Vault flags: --dir <vault-dir> --identity <name> --backend file|sqlite [--presence]")
}

func printPinUsage() {
	fmt.Fprintln(stderr, "Usage: pm pin <set|change|check|remove|status> [vault flags]")
}
