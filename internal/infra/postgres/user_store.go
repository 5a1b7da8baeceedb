package postgres

import (
	"context"
	"errors"
	"fmt"

	"quizdeck-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// UserStore checks login credentials against the users table. Passwords
// are stored as bcrypt hashes.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Authenticate resolves an email/password pair to the user record. An
// unknown email and a wrong password both come back as
// domain.ErrInvalidCredentials.
func (s *UserStore) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	var username, hash string
	var isCreator bool
	err := s.pool.QueryRow(ctx,
		`SELECT username, password, is_creator FROM users WHERE email=$1`, email,
	).Scan(&username, &hash, &isCreator)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return domain.User{Username: username, Email: email, IsCreator: isCreator}, nil
}
