package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// KnownAccountsStorageKey is the storage key of the known accounts list.
const KnownAccountsStorageKey = "AuthStore_known_accounts"

// MaxKnownAccounts bounds the known accounts list.
const MaxKnownAccounts = 10

// KnownAccounts is a rolling list of the accounts that logged in on this device,
// most recent first. It is a developer convenience for switching accounts and
// plays no part in authentication.
type KnownAccounts struct {
	mu      sync.Mutex
	storage Storage
}

// NewKnownAccounts returns a list persisted to storage.
func NewKnownAccounts(storage Storage) *KnownAccounts {
	return &KnownAccounts{storage: storage}
}

// List returns the known accounts, most recent first.
func (k *KnownAccounts) List(ctx context.Context) ([]User, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.load(ctx)
}

// Record moves user to the front of the list, replacing an entry with the same
// UUID and dropping the oldest entries beyond MaxKnownAccounts.
func (k *KnownAccounts) Record(ctx context.Context, user User) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	accounts, err := k.load(ctx)
	if err != nil {
		return err
	}

	updated := make([]User, 0, len(accounts)+1)
	updated = append(updated, user)
	for _, a := range accounts {
		if a.UserUUID != user.UserUUID {
			updated = append(updated, a)
		}
	}
	if len(updated) > MaxKnownAccounts {
		updated = updated[:MaxKnownAccounts]
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return encodeError(err)
	}
	return k.storage.Set(ctx, KnownAccountsStorageKey, data)
}

func (k *KnownAccounts) load(ctx context.Context) ([]User, error) {
	data, err := k.storage.Get(ctx, KnownAccountsStorageKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var accounts []User
	if err := json.Unmarshal(data, &accounts); err != nil {
		// a corrupt list is discarded, it only serves convenience
		return nil, nil
	}
	return accounts, nil
}
