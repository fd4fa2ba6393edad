// Package phi provides field-level encryption for Protected Health
// Information. A static entity field map names which columns of which record
// types are PHI; the codec encrypts those fields at rest under a single
// process-wide key derived at bootstrap.
package phi

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/rs/zerolog"
)

// KeyProvider holds the process-wide PHI encryption key. It is constructed
// once during bootstrap and passed to every consumer; the key is never
// logged or serialized.
type KeyProvider struct {
	key      [32]byte
	insecure bool
}

// NewKeyProvider derives a 32-byte AES-256 key from the operator-supplied
// secret via SHA-256.
//
// If secret is empty, a random key is generated for the process lifetime and
// a loud warning is logged: data encrypted under a random key becomes
// permanently unreadable after restart. This is tolerated for development
// only; production deployments must always configure the secret.
func NewKeyProvider(secret string, logger zerolog.Logger) (*KeyProvider, error) {
	if secret == "" {
		p := &KeyProvider{insecure: true}
		if _, err := rand.Read(p.key[:]); err != nil {
			return nil, fmt.Errorf("phi key: generate random key: %w", err)
		}
		logger.Warn().Msg("PHI_ENCRYPTION_SECRET is not set: using a random per-process key")
		logger.Warn().Msg("PHI encrypted in this process will be UNREADABLE after restart — do not run production this way")
		return p, nil
	}

	p := &KeyProvider{}
	p.key = sha256.Sum256([]byte(secret))
	return p, nil
}

// Key returns a copy of the derived key.
func (p *KeyProvider) Key() []byte {
	out := make([]byte, len(p.key))
	copy(out, p.key[:])
	return out
}

// Insecure reports whether the key was randomly generated because no secret
// was configured. Operational checks use this to block production deploys.
func (p *KeyProvider) Insecure() bool {
	return p.insecure
}
