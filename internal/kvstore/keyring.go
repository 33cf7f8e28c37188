package kvstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/birbparty/flat-client/sdk"
	zkr "github.com/zalando/go-keyring"
)

// KeyringStore keeps values in the OS keychain, one secret per key.
// Values are base64 encoded since some keychains only hold text.
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a store under the given keychain service
func NewKeyringStore(cfg KeyringConfig) *KeyringStore {
	service := cfg.Service
	if service == "" {
		service = "flat-client"
	}
	return &KeyringStore{service: service}
}

// Get implements sdk.Storage
func (k *KeyringStore) Get(_ context.Context, key string) ([]byte, error) {
	secret, err := zkr.Get(k.service, key)
	if err != nil {
		if errors.Is(err, zkr.ErrNotFound) {
			return nil, sdk.ErrNotFound
		}
		return nil, fmt.Errorf("keychain get: %w", err)
	}
	value, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("keychain get: %w", err)
	}
	return value, nil
}

// Set implements sdk.Storage
func (k *KeyringStore) Set(_ context.Context, key string, value []byte) error {
	if err := zkr.Set(k.service, key, base64.StdEncoding.EncodeToString(value)); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

// Delete implements sdk.Storage
func (k *KeyringStore) Delete(_ context.Context, key string) error {
	if err := zkr.Delete(k.service, key); err != nil && !errors.Is(err, zkr.ErrNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

// Close implements Store
func (k *KeyringStore) Close() error { return nil }
