package auth

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/magabrotheeeer/storefront/internal/lib/apperr"
	"github.com/magabrotheeeer/storefront/internal/models"
	"github.com/magabrotheeeer/storefront/internal/storage"
)

// UserRepository хранилище пользователей.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateUserPassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// PasswordHasher хеширует и проверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encodedHash, password string) (bool, error)
}

// CredentialStore единственная точка записи пароля: Create и UpdatePassword
// всегда хешируют открытый текст перед сохранением.
type CredentialStore struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewCredentialStore создает CredentialStore.
func NewCredentialStore(users UserRepository, hasher PasswordHasher) *CredentialStore {
	return &CredentialStore{users: users, hasher: hasher}
}

// FindByEmail возвращает пользователя или storage.ErrUserNotFound.
func (c *CredentialStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.users.GetUserByEmail(ctx, email)
}

// FindByID возвращает пользователя или storage.ErrUserNotFound.
func (c *CredentialStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return c.users.GetUserByID(ctx, id)
}

// Create регистрирует пользователя. Занятый email или username дает ConflictError.
func (c *CredentialStore) Create(ctx context.Context, username, email, plaintext, role string) (*models.User, error) {
	const op = "auth.CredentialStore.Create"

	_, err := c.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperr.Conflict(msgEmailTaken)
	case !errors.Is(err, storage.ErrUserNotFound):
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	hash, err := c.hasher.Hash(plaintext)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if _, err := c.users.CreateUser(ctx, user); err != nil {
		// уникальный индекс срабатывает и при гонке двух регистраций
		var dup *storage.DuplicateError
		if errors.As(err, &dup) {
			if dup.Index == storage.IndexUsernameUnique {
				return nil, apperr.Conflict(msgUsernameTaken)
			}
			return nil, apperr.Conflict(msgEmailTaken)
		}
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return user, nil
}

// UpdatePassword хеширует и сохраняет новый пароль.
func (c *CredentialStore) UpdatePassword(ctx context.Context, id primitive.ObjectID, plaintext string) error {
	const op = "auth.CredentialStore.UpdatePassword"

	hash, err := c.hasher.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.users.UpdateUserPassword(ctx, id, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// VerifyPassword сравнивает пароль с хэшем пользователя.
func (c *CredentialStore) VerifyPassword(user *models.User, plaintext string) (bool, error) {
	return c.hasher.Verify(user.PasswordHash, plaintext)
}

// List возвращает всех пользователей.
func (c *CredentialStore) List(ctx context.Context) ([]models.User, error) {
	return c.users.ListUsers(ctx)
}
