// Command pininspect prints what kind of record a vault holds. It never
// prints salts or hashes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Hussein-Mazeh/PinVault/internal/config"
	"github.com/Hussein-Mazeh/PinVault/internal/credential"
	"github.com/Hussein-Mazeh/PinVault/internal/keyring"
	"github.com/Hussein-Mazeh/PinVault/internal/vault"
	"github.com/Hussein-Mazeh/PinVault/krypto"
	"github.com/Hussein-Mazeh/PinVault/store"
)

func main() {
	cfg, err := config.FromEnv(config.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flag.StringVar(&cfg.Dir, "dir", cfg.Dir, "vault directory")
	flag.StringVar(&cfg.Identity, "identity", cfg.Identity, "vault identity")
	backend := flag.String("backend", string(cfg.Backend), "storage backend (file|sqlite)")
	flag.Parse()
	cfg.Backend = config.Backend(*backend)

	s, err := vault.Open(cfg, keyring.Platform(cfg.Dir), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open vault: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	if err := inspect(os.Stdout, s.Storage); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		s.Close()
		os.Exit(1)
	}
}

func inspect(w io.Writer, v store.Vault) error {
	raw, err := v.ReadAll()
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintln(w, "no record stored")
		return nil
	}
	if err != nil {
		return err
	}
	defer krypto.Zeroize(raw)

	fmt.Fprintf(w, "record: %d bytes\n", len(raw))
	rec, err := credential.Decode(raw)
	if err != nil {
		fmt.Fprintf(w, "format: unreadable (%v)\n", err)
		return nil
	}

	switch rec.Kind {
	case credential.KindCurrent:
		p := rec.Current.Params
		fmt.Fprintf(w, "format: current (params version %d)\n", rec.Current.ParamsVersion)
		fmt.Fprintf(w, "argon2id: m=%dKiB t=%d p=%d salt=%dB hash=%dB\n",
			p.MemoryKiB, p.Time, p.Parallelism, len(rec.Current.Salt), len(rec.Current.Hash))
	case credential.KindLegacy:
		fmt.Fprintln(w, "format: legacy (migrates on next successful check)")
		fmt.Fprintf(w, "pbkdf2: alg=%s iterations=%d salt=%dB key=%dB\n",
			rec.Legacy.Algorithm, rec.Legacy.Iterations, len(rec.Legacy.Salt), len(rec.Legacy.DerivedKey))
	}
	return nil
}
