package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gatherly/auth-service/internal/apperrors"
	"github.com/gatherly/auth-service/internal/models"
	"github.com/gatherly/auth-service/internal/repository"
)

// MemoryStorage is an in-memory repository.Storage for tests that don't
// need a real table store behind them
type MemoryStorage struct {
	tokens *MemoryTokenRepo
	users  *MemoryUserRepo
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tokens: &MemoryTokenRepo{records: map[string]models.TokenRecord{}},
		users:  &MemoryUserRepo{users: map[string]models.User{}},
	}
}

func (s *MemoryStorage) Tokens() repository.TokenRepo { return s.tokens }
func (s *MemoryStorage) Users() repository.UserRepo   { return s.users }

type MemoryTokenRepo struct {
	mu      sync.Mutex
	records map[string]models.TokenRecord

	// FailSaves makes every Save return an error, for fail-closed tests
	FailSaves bool
}

func tokenMapKey(userID string, tokenID string) string {
	return userID + "/" + tokenID
}

func (r *MemoryTokenRepo) Save(ctx context.Context, record models.TokenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailSaves {
		return fmt.Errorf("db error: save disabled")
	}

	r.records[tokenMapKey(record.UserID, record.TokenID)] = record
	return nil
}

func (r *MemoryTokenRepo) Get(ctx context.Context, userID string, tokenID string) (models.TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[tokenMapKey(userID, tokenID)]
	if !ok {
		return models.TokenRecord{}, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	}
	return record, nil
}

func (r *MemoryTokenRepo) Delete(ctx context.Context, userID string, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tokenMapKey(userID, tokenID)
	if _, ok := r.records[key]; !ok {
		return fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	}
	delete(r.records, key)
	return nil
}

// Len returns the number of stored records
func (r *MemoryTokenRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type MemoryUserRepo struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (r *MemoryUserRepo) Create(ctx context.Context, username string, email string, hashedPassword string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[email]; ok {
		return models.User{}, fmt.Errorf("repo error: %w", apperrors.ErrUserAlreadyExists)
	}

	user := models.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
	}
	r.users[email] = user
	return user, nil
}

func (r *MemoryUserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return models.User{}, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	}
	return user, nil
}
