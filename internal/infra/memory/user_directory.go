package memory

import (
	"context"
	"fmt"
	"sync"

	"quizdeck-service/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// UserDirectory is an in-memory credential store for running without
// Postgres (demos, tests). Passwords are bcrypt-hashed on Add, so the
// directory behaves like the database-backed store.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]directoryEntry // keyed by email
}

type directoryEntry struct {
	user domain.User
	hash []byte
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{users: make(map[string]directoryEntry)}
}

// Add registers a user under their email.
func (d *UserDirectory) Add(user domain.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.Email] = directoryEntry{user: user, hash: hash}
	return nil
}

// Authenticate resolves an email/password pair to the user record.
func (d *UserDirectory) Authenticate(_ context.Context, email, password string) (domain.User, error) {
	d.mu.RLock()
	entry, ok := d.users[email]
	d.mu.RUnlock()
	if !ok {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(entry.hash, []byte(password)) != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return entry.user, nil
}
