package storage

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrDuplicate нарушение уникального индекса.
	ErrDuplicate = errors.New("duplicate key")
	// ErrUserNotFound пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrRefreshTokenNotFound refresh-токен не найден или уже погашен.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrProductNotFound товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidID строка не является ObjectID.
	ErrInvalidID = errors.New("invalid object id")
)

// Имена уникальных индексов из migrations/.
const (
	IndexEmailUnique    = "email_unique"
	IndexUsernameUnique = "username_unique"
	IndexTokenUnique    = "token_unique"
)

// DuplicateError нарушение уникального индекса Index. Совпадает с ErrDuplicate через errors.Is.
type DuplicateError struct {
	Index string
	Err   error
}

func (e *DuplicateError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrDuplicate, e.Index)
	}
	return fmt.Sprintf("%s: %s: %s", ErrDuplicate, e.Index, e.Err)
}

// Is сопоставляет ошибку с ErrDuplicate.
func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

func (e *DuplicateError) Unwrap() error { return e.Err }

// ParseID разбирает hex-представление ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, hex)
	}
	return id, nil
}

func wrapWrite(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, &DuplicateError{Index: duplicateIndex(err.Error()), Err: err})
	}
	return fmt.Errorf("%s: %w", op, err)
}

// duplicateIndex достает имя индекса из текста E11000. Имя идет раньше
// значения ключа, поэтому данные пользователя на результат не влияют.
func duplicateIndex(msg string) string {
	_, rest, ok := strings.Cut(msg, " index: ")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, " ")
	return name
}
