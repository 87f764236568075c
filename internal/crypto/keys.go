// Package crypto seals snapshot exports with age so fleet state can leave
// the host without exposing agent configuration.
package crypto

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// KeyManager owns the daemon's age identity, generating it on first use
// and loading it on subsequent starts.
type KeyManager struct {
	identityPath string
	identity     *age.X25519Identity
	publicKey    string
}

// NewKeyManager creates a KeyManager for the given identity file path.
func NewKeyManager(identityPath string) *KeyManager {
	return &KeyManager{identityPath: identityPath}
}

// Initialize loads an existing identity or generates a new one.
func (km *KeyManager) Initialize() error {
	if _, err := os.Stat(km.identityPath); err == nil {
		return km.loadIdentity()
	}
	return km.generateIdentity()
}

func (km *KeyManager) generateIdentity() error {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("failed to generate identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(km.identityPath), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	content := fmt.Sprintf("# created: agentdeck\n# public key: %s\n%s\n",
		identity.Recipient().String(),
		identity.String(),
	)
	if err := os.WriteFile(km.identityPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}

	km.identity = identity
	km.publicKey = identity.Recipient().String()
	return nil
}

func (km *KeyManager) loadIdentity() error {
	data, err := os.ReadFile(km.identityPath)
	if err != nil {
		return fmt.Errorf("failed to read identity file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		identity, err := age.ParseX25519Identity(line)
		if err != nil {
			return fmt.Errorf("failed to parse identity: %w", err)
		}
		km.identity = identity
		km.publicKey = identity.Recipient().String()
		return nil
	}

	return fmt.Errorf("no identity found in %s", km.identityPath)
}

// PublicKey returns the identity's public key string.
func (km *KeyManager) PublicKey() string {
	return km.publicKey
}

// PublicKeyHint returns a shortened public key for logs and status output.
func (km *KeyManager) PublicKeyHint() string {
	if len(km.publicKey) > 12 {
		return km.publicKey[:12] + "..."
	}
	return km.publicKey
}

// Identity returns the underlying age identity.
func (km *KeyManager) Identity() *age.X25519Identity {
	return km.identity
}

// Recipient returns the age recipient for sealing.
func (km *KeyManager) Recipient() *age.X25519Recipient {
	return km.identity.Recipient()
}
