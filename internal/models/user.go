// Package models содержит доменные модели магазина: пользователей,
// refresh-токены и товары. Структуры используются в бизнес-логике
// и напрямую отображаются на документы MongoDB.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// RoleUser роль по умолчанию
	RoleUser = "user"
	// RoleAdmin роль с доступом к управлению товарами
	RoleAdmin = "admin"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"` // только argon2id-хэш
	Role         string             `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsAdmin сообщает, есть ли у пользователя права администратора.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
