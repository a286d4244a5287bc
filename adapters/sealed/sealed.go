package sealed

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/airealcheck/realcheck"
	"github.com/airealcheck/realcheck/pkg/crypto"
)

// Store wraps any KeyValueStore and encrypts values at rest, so a
// bearer token written to disk or a shared database is never stored
// in plaintext.
type Store struct {
	inner      realcheck.KeyValueStore
	passphrase string
}

var _ realcheck.KeyValueStore = (*Store)(nil)

func New(inner realcheck.KeyValueStore, passphrase string) (*Store, error) {
	if passphrase == "" {
		return nil, crypto.ErrPassphraseRequired
	}
	return &Store{inner: inner, passphrase: passphrase}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	encoded, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	sealedValue, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sealed value for %q: %w", key, err)
	}
	plaintext, err := crypto.Open(s.passphrase, sealedValue)
	if err != nil {
		return "", fmt.Errorf("open sealed value for %q: %w", key, err)
	}
	return string(plaintext), nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	sealedValue, err := crypto.Seal(s.passphrase, []byte(value))
	if err != nil {
		return fmt.Errorf("seal value for %q: %w", key, err)
	}
	return s.inner.Set(ctx, key, base64.RawStdEncoding.EncodeToString(sealedValue))
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
