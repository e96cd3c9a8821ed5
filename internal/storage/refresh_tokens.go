package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/magabrotheeeer/storefront/internal/models"
)

// CreateRefreshToken сохраняет новый refresh-токен.
func (s *Storage) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.CreateRefreshToken"

	token.ID = primitive.NewObjectID()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = s.now()
	}
	if _, err := s.refreshTokens.InsertOne(ctx, token); err != nil {
		token.ID = primitive.NilObjectID
		return wrapWrite(op, err)
	}
	return nil
}

// FindRefreshToken ищет запись по значению токена. Просроченные записи тоже возвращаются.
func (s *Storage) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const op = "storage.FindRefreshToken"

	var rt models.RefreshToken
	err := s.refreshTokens.FindOne(ctx, bson.M{"token": token}).Decode(&rt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &rt, nil
}

// DeleteRefreshToken удаляет запись токена. Если записи нет, возвращается ErrRefreshTokenNotFound.
func (s *Storage) DeleteRefreshToken(ctx context.Context, token string) error {
	const op = "storage.DeleteRefreshToken"

	res, err := s.refreshTokens.DeleteOne(ctx, bson.M{"token": token})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, ErrRefreshTokenNotFound)
	}
	return nil
}

// DeleteAndReissue погашает старый токен и сохраняет новый.
// Новый токен вставляется первым: если вставка не удалась, старый остается
// действительным. Затем старый удаляется условно, и из конкурентных вызовов
// с одним токеном успешен только один. Проигравший получает
// ErrRefreshTokenNotFound, а его новый токен удаляется.
func (s *Storage) DeleteAndReissue(ctx context.Context, oldToken string, next *models.RefreshToken) error {
	const op = "storage.DeleteAndReissue"

	if err := s.CreateRefreshToken(ctx, next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := s.refreshTokens.FindOneAndDelete(ctx, bson.M{"token": oldToken}).Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		err = ErrRefreshTokenNotFound
	}
	if _, delErr := s.refreshTokens.DeleteOne(ctx, bson.M{"_id": next.ID}); delErr != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(err, delErr))
	}
	next.ID = primitive.NilObjectID
	return fmt.Errorf("%s: %w", op, err)
}

// DeleteUserRefreshTokens удаляет все refresh-токены пользователя и возвращает их количество.
func (s *Storage) DeleteUserRefreshTokens(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	const op = "storage.DeleteUserRefreshTokens"

	res, err := s.refreshTokens.DeleteMany(ctx, bson.M{"user": userID})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return res.DeletedCount, nil
}
