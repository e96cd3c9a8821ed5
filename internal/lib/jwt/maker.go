// Package jwt реализует выпуск и проверку access-токенов (HS256).
package jwt

import (
	"time"
)

// Maker описывает выпуск и разбор access-токенов.
type Maker interface {
	GenerateToken(userID, username, role string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl подписывает токены секретным ключом и задает им время жизни.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создаёт MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// TTL время жизни выпускаемых токенов.
func (j *MakerImpl) TTL() time.Duration {
	return j.tokenTTL
}
