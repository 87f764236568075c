package crypto

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
)

// ageHeader is the first line of every binary age file.
const ageHeader = "age-encryption.org/v1"

// Sealer encrypts and decrypts snapshot blobs with the daemon's identity.
type Sealer struct {
	keys *KeyManager
}

// NewSealer creates a Sealer backed by an initialized KeyManager.
func NewSealer(keys *KeyManager) *Sealer {
	return &Sealer{keys: keys}
}

// Seal encrypts a blob to the daemon's own recipient.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	if s.keys.Identity() == nil {
		return nil, fmt.Errorf("key manager not initialized")
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, s.keys.Recipient())
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("failed to write plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close encryptor: %w", err)
	}
	return buf.Bytes(), nil
}

// Unseal decrypts a sealed blob with the daemon's identity.
func (s *Sealer) Unseal(ciphertext []byte) ([]byte, error) {
	if s.keys.Identity() == nil {
		return nil, fmt.Errorf("key manager not initialized")
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), s.keys.Identity())
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read decrypted data: %w", err)
	}
	return plaintext, nil
}

// IsSealed reports whether a blob looks like age ciphertext, so import can
// accept both sealed and plain snapshots.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(ageHeader))
}
