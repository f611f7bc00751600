package redis

// Package redis provides Redis-backed adapters. The transaction store
// mirrors OAuth flow state so a callback can recover from a lost cookie;
// it is strictly best-effort and never load-bearing.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
)

// ErrNotFound is returned when a transaction is not found.
var ErrNotFound error = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "oauth transaction not found" }

// TxnStore stores OAuth transaction state under a per-provider, per-state key.
type TxnStore struct {
	client redis.UniversalClient
	prefix string
}

// NewTxnStore creates a new Redis-based transaction store.
func NewTxnStore(client redis.UniversalClient) *TxnStore {
	return &TxnStore{client: client, prefix: "oauth:txn:"}
}

func (s *TxnStore) key(provider, state string) string {
	return s.prefix + provider + ":" + state
}

// Save stores the transaction with the given TTL.
func (s *TxnStore) Save(ctx context.Context, provider string, txn domainauth.Transaction, ttl time.Duration) error {
	if txn.State == "" {
		return errors.New("transaction state cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("transaction ttl must be positive")
	}

	data, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	return s.client.Set(ctx, s.key(provider, txn.State), data, ttl).Err()
}

// Get retrieves a transaction by provider and state.
func (s *TxnStore) Get(ctx context.Context, provider, state string) (domainauth.Transaction, error) {
	if state == "" {
		return domainauth.Transaction{}, ErrNotFound
	}

	data, err := s.client.Get(ctx, s.key(provider, state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Transaction{}, ErrNotFound
		}
		return domainauth.Transaction{}, fmt.Errorf("redis get: %w", err)
	}

	var txn domainauth.Transaction
	if unmarshalErr := json.Unmarshal([]byte(data), &txn); unmarshalErr != nil {
		return domainauth.Transaction{}, fmt.Errorf("unmarshal transaction: %w", unmarshalErr)
	}
	return txn, nil
}

// Delete removes a transaction. Deleting an absent transaction is not an error.
func (s *TxnStore) Delete(ctx context.Context, provider, state string) error {
	if state == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(provider, state)).Err()
}
