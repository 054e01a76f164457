package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoIdentity is returned when a session has no stored identity blob,
// meaning the session never logged in or already logged out.
var ErrNoIdentity = errors.New("session: no identity")

// Store persists the opaque identity blob the backend returns on login. The
// blob is stored verbatim; the gateway only ever inspects its id field.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewStore builds a Store backed by the given Redis client.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{Client: client, TTL: ttl}
}

func identityKey(sessionID string) string {
	return "session:" + sessionID
}

// SaveIdentity stores the login response for a session, replacing any
// previous identity.
func (s *Store) SaveIdentity(ctx context.Context, sessionID string, blob json.RawMessage) error {
	if s == nil || s.Client == nil {
		return errors.New("session: store not configured")
	}
	if err := s.Client.Set(ctx, identityKey(sessionID), []byte(blob), s.TTL).Err(); err != nil {
		return fmt.Errorf("session: save identity: %w", err)
	}
	return nil
}

// Identity returns the stored blob for a session.
func (s *Store) Identity(ctx context.Context, sessionID string) (json.RawMessage, error) {
	if s == nil || s.Client == nil {
		return nil, errors.New("session: store not configured")
	}
	raw, err := s.Client.Get(ctx, identityKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("session: load identity: %w", err)
	}
	return json.RawMessage(raw), nil
}

// IdentityField extracts one top-level field from the stored blob as a
// string, used to scope owner-bound queries: a vendor's own store keys on
// id_vendedor, a buyer's orders on id_comprador. Numbers keep their exact
// textual form.
func (s *Store) IdentityField(ctx context.Context, sessionID, field string) (string, error) {
	blob, err := s.Identity(ctx, sessionID)
	if err != nil {
		return "", err
	}
	var fields map[string]any
	decoder := json.NewDecoder(bytes.NewReader(blob))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil || fields[field] == nil {
		return "", errors.New("session: identity has no " + field + " field")
	}
	return fmt.Sprintf("%v", fields[field]), nil
}

// ClearIdentity removes the stored blob for a session.
func (s *Store) ClearIdentity(ctx context.Context, sessionID string) error {
	if s == nil || s.Client == nil {
		return errors.New("session: store not configured")
	}
	if err := s.Client.Del(ctx, identityKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("session: clear identity: %w", err)
	}
	return nil
}
