package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quizdeck-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL is the fixed session expiration: seven days,
// refreshed on each access.
const DefaultSessionTTL = 7 * 24 * time.Hour

const sessionKeyPrefix = "session:"

// SessionStore maps opaque session tokens to serialized user records in
// Redis. Tokens are random hex strings handed to the client (stored in a
// cookie there); every successful lookup slides the expiration forward.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

// Create issues a fresh token for the user and stores the record.
func (s *SessionStore) Create(ctx context.Context, user domain.User) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	encoded, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("marshal session user: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+token, encoded, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Get resolves a token to its user record and refreshes the expiration.
func (s *SessionStore) Get(ctx context.Context, token string) (domain.User, error) {
	key := sessionKeyPrefix + token
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load session: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal session user: %w", err)
	}

	// Sliding expiration: each access restores the full TTL.
	_ = s.client.Expire(ctx, key, s.ttl).Err()
	return user, nil
}

// Destroy removes the session, logging the user out everywhere the token
// was used.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
