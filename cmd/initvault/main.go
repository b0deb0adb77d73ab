// Command initvault provisions the vault key and storage for an identity
// without setting a PIN.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/Hussein-Mazeh/PinVault/internal/config"
	"github.com/Hussein-Mazeh/PinVault/internal/keyring"
	"github.com/Hussein-Mazeh/PinVault/internal/vault"
)

func main() {
	cfg, err := config.FromEnv(config.Default())
	if err != nil {
		log.Fatalf("read environment: %v", err)
	}
	flag.StringVar(&cfg.Dir, "dir", cfg.Dir, "vault directory")
	flag.StringVar(&cfg.Identity, "identity", cfg.Identity, "vault identity")
	backend := flag.String("backend", string(cfg.Backend), "storage backend (file|sqlite)")
	flag.Parse()
	cfg.Backend = config.Backend(*backend)

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	s, err := vault.Open(cfg, keyring.Platform(cfg.Dir), logger)
	if err != nil {
		log.Fatalf("open vault: %v", err)
	}
	defer s.Close()

	set, err := s.Manager.IsPinSet()
	if err != nil {
		log.Fatalf("initialize vault: %v", err)
	}
	fmt.Printf("vault ready: identity=%s backend=%s dir=%s pin-set=%t\n", cfg.Identity, cfg.Backend, cfg.Dir, set)
}
