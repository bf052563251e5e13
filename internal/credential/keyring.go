package credential

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const (
	serviceName = "fusion-prompts"

	// installSecretKey names the per-installation masking secret.
	installSecretKey = "install-secret"

	installSecretSize = 32
)

// Open returns the system keyring, falling back to an encrypted file store
// on hosts without a native keyring.
func Open() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/fusion-prompts/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("fusion-prompts-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// InstallSecret returns the secret that identifies this installation,
// generating and storing one on first use. The secret never leaves the
// device; it only keys the identifier masker.
func InstallSecret(ring keyring.Keyring) ([]byte, error) {
	item, err := ring.Get(installSecretKey)
	if err == nil && len(item.Data) >= installSecretSize {
		return item.Data, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, fmt.Errorf("getting credential %q: %w", installSecretKey, err)
	}

	secret := make([]byte, installSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating install secret: %w", err)
	}

	err = ring.Set(keyring.Item{
		Key:         installSecretKey,
		Data:        secret,
		Label:       "fusion-prompts install secret",
		Description: "Keys telemetry identifier masking",
	})
	if err != nil {
		return nil, fmt.Errorf("setting credential %q: %w", installSecretKey, err)
	}

	return secret, nil
}

// ForgetInstallSecret removes the stored secret so the next InstallSecret
// call starts a fresh masking domain. Used by the explicit data reset.
func ForgetInstallSecret(ring keyring.Keyring) error {
	err := ring.Remove(installSecretKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", installSecretKey, err)
	}
	return nil
}
