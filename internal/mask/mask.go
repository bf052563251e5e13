// Package mask turns prompt identifiers into tokens that are safe to send
// with telemetry.
package mask

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// MinSecretSize is the shortest accepted installation secret.
const MinSecretSize = 16

// Masker produces one-way tokens keyed by an installation secret. The same
// identifier always maps to the same token for a given secret.
type Masker struct {
	secret []byte
}

// New returns a Masker keyed by secret.
func New(secret []byte) (*Masker, error) {
	if len(secret) < MinSecretSize || len(secret) > blake2b.Size {
		return nil, fmt.Errorf("mask secret must be %d-%d bytes, got %d",
			MinSecretSize, blake2b.Size, len(secret))
	}
	return &Masker{secret: append([]byte(nil), secret...)}, nil
}

// MaskPromptID returns the telemetry token for promptUUID. It must never be
// used as a store key.
func (m *Masker) MaskPromptID(promptUUID string) string {
	// blake2b.New256 only fails for keys over 64 bytes, which New rejects.
	h, _ := blake2b.New256(m.secret)
	h.Write([]byte(promptUUID))
	return hex.EncodeToString(h.Sum(nil))
}
