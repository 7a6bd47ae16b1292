package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/port"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) port.UserPort {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	id := uuid.NewString()
	_, err := r.db.exec(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		id, user.Email, user.PasswordHash, user.CreatedAt.UTC(),
	)
	if err != nil {
		return parseError(err)
	}

	user.ID = domain.ID(id)
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var (
		user      domain.User
		id        string
		createdAt time.Time
	)
	err := r.db.queryRow(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?",
		domain.NormalizeEmail(email),
	).Scan(&id, &user.Email, &user.PasswordHash, &createdAt)
	if err != nil {
		return nil, parseError(err)
	}

	user.ID = domain.ID(id)
	user.CreatedAt = createdAt.UTC()
	return &user, nil
}
