package middleware

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// bcryptCost 10 is roughly 60ms per hash.
	bcryptCost  = 10
	bcryptLimit = 72
)

// Sentinel errors for key store construction.
var (
	ErrEmptyKey     = errors.New("API key cannot be empty")
	ErrDuplicateKey = errors.New("API key configured twice")
)

type (
	// APIKey is one configured credential. Only the bcrypt hash is retained.
	APIKey struct {
		ID       string
		ClientID string
		Hash     string
	}

	// KeyStore resolves a presented API key to its configured credential.
	KeyStore interface {
		FindByKey(ctx context.Context, key string) (*APIKey, bool)
	}

	// HashedKeyStore holds bcrypt hashes of a fixed set of API keys.
	HashedKeyStore struct {
		keys []APIKey
	}
)

// NewHashedKeyStore hashes each key. Key i gets ID "key-{i+1}"; its client ID is the
// text before the first ':' when the key has the form "client:secret", else the key ID.
//
// Example:
//
//	store, err := NewHashedKeyStore([]string{"etl:s3cr3t", "backfill:0th3r"})
func NewHashedKeyStore(keys []string) (*HashedKeyStore, error) {
	store := &HashedKeyStore{keys: make([]APIKey, 0, len(keys))}
	seen := make(map[string]bool, len(keys))

	for i, key := range keys {
		if key == "" {
			return nil, ErrEmptyKey
		}

		if seen[key] {
			return nil, fmt.Errorf("%w: key %d", ErrDuplicateKey, i+1)
		}

		seen[key] = true

		hash, err := HashAPIKey(key)
		if err != nil {
			return nil, err
		}

		id := fmt.Sprintf("key-%d", i+1)
		clientID := id

		if name, _, found := strings.Cut(key, ":"); found && name != "" {
			clientID = name
		}

		store.keys = append(store.keys, APIKey{ID: id, ClientID: clientID, Hash: hash})
	}

	return store, nil
}

// FindByKey compares key against every stored hash.
func (s *HashedKeyStore) FindByKey(_ context.Context, key string) (*APIKey, bool) {
	var found *APIKey

	// Every hash is compared so that lookup time does not reveal which key matched.
	for i := range s.keys {
		if CompareAPIKeyHash(s.keys[i].Hash, key) && found == nil {
			match := s.keys[i]
			found = &match
		}
	}

	return found, found != nil
}

// Len returns the number of configured keys.
func (s *HashedKeyStore) Len() int {
	return len(s.keys)
}

// HashAPIKey returns the bcrypt hash of apiKey. Keys longer than bcrypt's
// 72-byte input limit are pre-hashed with SHA-256.
func HashAPIKey(apiKey string) (string, error) {
	if apiKey == "" {
		return "", ErrEmptyKey
	}

	hash, err := bcrypt.GenerateFromPassword(bcryptInput(apiKey), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash API key: %w", err)
	}

	return string(hash), nil
}

// CompareAPIKeyHash reports whether apiKey matches hash. Any error is a mismatch.
func CompareAPIKeyHash(hash, apiKey string) bool {
	if hash == "" || apiKey == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(apiKey)) == nil
}

func bcryptInput(apiKey string) []byte {
	if len(apiKey) > bcryptLimit {
		sum := sha256.Sum256([]byte(apiKey))

		return sum[:]
	}

	return []byte(apiKey)
}

// MaskKey masks an API key for logging, keeping only the last four characters
// of keys long enough to stay unguessable.
func MaskKey(key string) string {
	const visible, minLen = 4, 12

	if len(key) < minLen {
		return strings.Repeat("*", len(key))
	}

	return strings.Repeat("*", len(key)-visible) + key[len(key)-visible:]
}
