package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealing for client state at rest. The browser original kept the
// bearer token in plaintext localStorage; a disk-backed client wraps
// its store with this instead.

var (
	ErrPassphraseRequired = errors.New("passphrase is required")
	ErrSealedTooShort     = errors.New("sealed value is too short")
	ErrOpenFailed         = errors.New("could not open sealed value")
)

const (
	saltLength = 16
	keyLength  = 32

	// Argon2id cost parameters
	// @ref https://cheatsheetseries.owasp.org/cheatsheets/Password_Storage_Cheat_Sheet.html
	argonMemory      = 64 * 1024 // 64 MB
	argonIterations  = 3
	argonParallelism = 2
)

// DeriveKey stretches a passphrase into a cipher key with argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonIterations, argonMemory, argonParallelism, keyLength)
}

// Seal encrypts plaintext under the passphrase. Layout of the result:
// salt | nonce | ciphertext.
func Seal(passphrase string, plaintext []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := chacha20poly1305.NewX(DeriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := make([]byte, 0, saltLength+len(nonce)+len(plaintext)+aead.Overhead())
	sealed = append(sealed, salt...)
	sealed = append(sealed, nonce...)
	return aead.Seal(sealed, nonce, plaintext, nil), nil
}

// Open decrypts a value produced by Seal. A wrong passphrase or a
// tampered value fails with ErrOpenFailed.
func Open(passphrase string, sealed []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}

	if len(sealed) < saltLength {
		return nil, ErrSealedTooShort
	}
	salt := sealed[:saltLength]

	aead, err := chacha20poly1305.NewX(DeriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}

	rest := sealed[saltLength:]
	if len(rest) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrSealedTooShort
	}
	nonce := rest[:aead.NonceSize()]

	plaintext, err := aead.Open(nil, nonce, rest[aead.NonceSize():], nil)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}
