package auth_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/magabrotheeeer/storefront/internal/lib/jwt"
	"github.com/magabrotheeeer/storefront/internal/lib/password"
	"github.com/magabrotheeeer/storefront/internal/models"
	"github.com/magabrotheeeer/storefront/internal/services/auth"
)

type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) UpdateUserPassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *UserRepoMock) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

type TokenRepoMock struct {
	mock.Mock
}

func (m *TokenRepoMock) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *TokenRepoMock) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshToken), args.Error(1)
}

func (m *TokenRepoMock) DeleteRefreshToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *TokenRepoMock) DeleteAndReissue(ctx context.Context, oldToken string, next *models.RefreshToken) error {
	args := m.Called(ctx, oldToken, next)
	return args.Error(0)
}

func (m *TokenRepoMock) DeleteUserRefreshTokens(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, eventType string, payload any) error {
	args := m.Called(ctx, eventType, payload)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

const testSecret = "test_secret_key"

type fixture struct {
	users  *UserRepoMock
	tokens *TokenRepoMock
	events *PublisherMock
	hasher *password.Hasher
	maker  *jwt.MakerImpl
	svc    *auth.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher, err := password.NewHasher(password.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)

	f := &fixture{
		users:  new(UserRepoMock),
		tokens: new(TokenRepoMock),
		events: new(PublisherMock),
		hasher: hasher,
		maker:  jwt.NewJWTMaker(testSecret, 60*time.Minute),
	}
	creds := auth.NewCredentialStore(f.users, hasher)
	issuer := auth.NewIssuer(f.maker, f.tokens, 7*24*time.Hour)
	f.svc = auth.NewAuthService(newNoopLogger(), creds, issuer, f.tokens, f.events)
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.users.AssertExpectations(t)
	f.tokens.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func (f *fixture) userWithPassword(t *testing.T, plaintext, role string) *models.User {
	t.Helper()
	hash, err := f.hasher.Hash(plaintext)
	require.NoError(t, err)
	return &models.User{
		ID:           primitive.NewObjectID(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Role:         role,
	}
}
