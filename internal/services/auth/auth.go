// Package auth содержит бизнес-логику аутентификации: регистрацию, вход,
// ротацию refresh-токенов, выход и смену пароля.
//
// Ошибки, предназначенные клиенту, возвращаются как *apperr.Error.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/storefront/internal/events"
	"github.com/magabrotheeeer/storefront/internal/lib/apperr"
	"github.com/magabrotheeeer/storefront/internal/lib/sl"
	"github.com/magabrotheeeer/storefront/internal/models"
	"github.com/magabrotheeeer/storefront/internal/storage"
)

const (
	msgEmailTaken          = "User with this email already exists"
	msgUsernameTaken       = "User with this username already exists"
	msgInvalidEmail        = "Invalid email"
	msgInvalidPassword     = "Invalid password"
	msgInvalidRefresh      = "Invalid refresh token"
	msgExpiredRefresh      = "Expired refresh token"
	msgUserNotFound        = "User not found"
	msgInvalidRole         = "Invalid role"
	msgWrongCurrentPass    = "Current password is incorrect"
	msgInvalidUserIdentity = "Invalid token"
)

// RegisterInput данные регистрации.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// Result пара токенов и пользователь, для которого они выпущены.
type Result struct {
	Tokens TokenPair
	User   *models.User
}

// AuthService сценарии аутентификации поверх CredentialStore и Issuer.
type AuthService struct {
	log    *slog.Logger
	creds  *CredentialStore
	issuer *Issuer
	tokens RefreshTokenRepository
	events events.Publisher
}

// NewAuthService создает AuthService.
func NewAuthService(log *slog.Logger, creds *CredentialStore, issuer *Issuer, tokens RefreshTokenRepository, publisher events.Publisher) *AuthService {
	return &AuthService{
		log:    log,
		creds:  creds,
		issuer: issuer,
		tokens: tokens,
		events: publisher,
	}
}

// Register создает пользователя и сразу выпускает ему пару токенов.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	const op = "auth.Register"

	role := in.Role
	switch role {
	case "":
		role = models.RoleUser
	case models.RoleUser:
	case models.RoleAdmin:
		s.log.Warn("self-registration with admin role", sl.Op(op), slog.String("email", in.Email))
	default:
		return nil, apperr.Validation(msgInvalidRole)
	}

	user, err := s.creds.Create(ctx, in.Username, in.Email, in.Password, role)
	if err != nil {
		return nil, err
	}

	pair, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	s.publish(ctx, events.UserRegistered, map[string]string{
		"id":       user.ID.Hex(),
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	})

	return &Result{Tokens: pair, User: user}, nil
}

// Login проверяет email и пароль. Ранее выданные refresh-токены остаются действительными.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Result, error) {
	const op = "auth.Login"

	user, err := s.creds.FindByEmail(ctx, email)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, apperr.Unauthorized(msgInvalidEmail)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	ok, err := s.creds.VerifyPassword(user, password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if !ok {
		return nil, apperr.Unauthorized(msgInvalidPassword)
	}

	pair, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return &Result{Tokens: pair, User: user}, nil
}

// Refresh погашает refresh-токен и выпускает новую пару.
// Просроченный токен не удаляется, повторное погашение всегда дает Unauthorized.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	const op = "auth.Refresh"

	record, err := s.tokens.FindRefreshToken(ctx, refreshToken)
	if errors.Is(err, storage.ErrRefreshTokenNotFound) {
		return TokenPair{}, apperr.Unauthorized(msgInvalidRefresh)
	}
	if err != nil {
		return TokenPair{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if record.Expired(s.issuer.now()) {
		return TokenPair{}, apperr.Unauthorized(msgExpiredRefresh)
	}

	user, err := s.creds.FindByID(ctx, record.UserID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return TokenPair{}, apperr.Unauthorized(msgUserNotFound)
	}
	if err != nil {
		return TokenPair{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	pair, err := s.issuer.Reissue(ctx, refreshToken, user)
	if errors.Is(err, storage.ErrRefreshTokenNotFound) {
		return TokenPair{}, apperr.Unauthorized(msgInvalidRefresh)
	}
	if err != nil {
		return TokenPair{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return pair, nil
}

// Logout удаляет refresh-токен. Неизвестный или уже удаленный токен дает ValidationError.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	const op = "auth.Logout"

	err := s.tokens.DeleteRefreshToken(ctx, refreshToken)
	if errors.Is(err, storage.ErrRefreshTokenNotFound) {
		return apperr.Validation(msgInvalidRefresh)
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// ChangePassword меняет пароль после проверки текущего и отзывает все refresh-токены пользователя.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	const op = "auth.ChangePassword"

	id, err := storage.ParseID(userID)
	if err != nil {
		return apperr.Unauthorized(msgInvalidUserIdentity)
	}

	user, err := s.creds.FindByID(ctx, id)
	if errors.Is(err, storage.ErrUserNotFound) {
		return apperr.Unauthorized(msgUserNotFound)
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	ok, err := s.creds.VerifyPassword(user, currentPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if !ok {
		return apperr.Unauthorized(msgWrongCurrentPass)
	}

	if err := s.creds.UpdatePassword(ctx, id, newPassword); err != nil {
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	revoked, err := s.tokens.DeleteUserRefreshTokens(ctx, id)
	if err != nil {
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	s.log.Info("password changed", sl.Op(op), slog.String("user_id", userID), slog.Int64("revoked_tokens", revoked))

	s.publish(ctx, events.UserPasswordChanged, map[string]string{"id": userID})
	return nil
}

// ListUsers возвращает всех пользователей.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "auth.ListUsers"

	users, err := s.creds.List(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return users, nil
}

func (s *AuthService) publish(ctx context.Context, eventType string, payload any) {
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.log.Error("failed to publish event", slog.String("event", eventType), sl.Err(err))
	}
}
