package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/magabrotheeeer/storefront/internal/models"
)

// CreateUser сохраняет пользователя и возвращает его идентификатор.
// Поле PasswordHash должно уже содержать хэш.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	const op = "storage.CreateUser"

	now := s.now()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		user.ID = primitive.NilObjectID
		return primitive.NilObjectID, wrapWrite(op, err)
	}
	return user.ID, nil
}

// GetUserByEmail ищет пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	return s.findUser(ctx, op, bson.M{"email": email})
}

// GetUserByID ищет пользователя по идентификатору.
func (s *Storage) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	const op = "storage.GetUserByID"
	return s.findUser(ctx, op, bson.M{"_id": id})
}

func (s *Storage) findUser(ctx context.Context, op string, filter bson.M) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// UpdateUserPassword заменяет хэш пароля пользователя.
func (s *Storage) UpdateUserPassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	const op = "storage.UpdateUserPassword"

	res, err := s.users.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"password": passwordHash, "updatedAt": s.now()},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// ListUsers возвращает всех пользователей в порядке регистрации.
func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "storage.ListUsers"

	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	users := make([]models.User, 0)
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}
