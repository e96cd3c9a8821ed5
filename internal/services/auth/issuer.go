package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/magabrotheeeer/storefront/internal/lib/jwt"
	"github.com/magabrotheeeer/storefront/internal/models"
)

// refreshTokenBytes длина случайной части refresh-токена; в hex это 96 символов.
const refreshTokenBytes = 48

// RefreshTokenRepository хранилище refresh-токенов.
type RefreshTokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteAndReissue(ctx context.Context, oldToken string, next *models.RefreshToken) error
	DeleteUserRefreshTokens(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// TokenPair access- и refresh-токен.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Issuer выпускает пары токенов. Каждый выпуск создает новую запись refresh-токена.
type Issuer struct {
	maker      jwt.Maker
	tokens     RefreshTokenRepository
	refreshTTL time.Duration
	random     io.Reader
	now        func() time.Time
}

// NewIssuer создает Issuer.
func NewIssuer(maker jwt.Maker, tokens RefreshTokenRepository, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		maker:      maker,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		random:     rand.Reader,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Issue выпускает пару токенов для пользователя и сохраняет refresh-токен.
func (i *Issuer) Issue(ctx context.Context, user *models.User) (TokenPair, error) {
	const op = "auth.Issuer.Issue"

	pair, record, err := i.mint(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := i.tokens.CreateRefreshToken(ctx, record); err != nil {
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// Reissue погашает oldToken и выпускает новую пару. Если oldToken уже погашен
// (в том числе конкурентным вызовом), возвращается storage.ErrRefreshTokenNotFound.
func (i *Issuer) Reissue(ctx context.Context, oldToken string, user *models.User) (TokenPair, error) {
	const op = "auth.Issuer.Reissue"

	pair, record, err := i.mint(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := i.tokens.DeleteAndReissue(ctx, oldToken, record); err != nil {
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

func (i *Issuer) mint(user *models.User) (TokenPair, *models.RefreshToken, error) {
	access, err := i.maker.GenerateToken(user.ID.Hex(), user.Username, user.Role)
	if err != nil {
		return TokenPair{}, nil, err
	}

	buf := make([]byte, refreshTokenBytes)
	if _, err := io.ReadFull(i.random, buf); err != nil {
		return TokenPair{}, nil, err
	}
	refresh := hex.EncodeToString(buf)

	now := i.now()
	record := &models.RefreshToken{
		Token:     refresh,
		UserID:    user.ID,
		ExpiresAt: now.Add(i.refreshTTL),
		CreatedAt: now,
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, record, nil
}
