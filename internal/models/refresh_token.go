package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshToken непрозрачный одноразовый токен обновления.
// Документ удаляется при погашении или выходе; просроченные записи не удаляются сервисом.
type RefreshToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	UserID    primitive.ObjectID `bson:"user"`
	ExpiresAt time.Time          `bson:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// Expired проверяет срок действия токена относительно now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
