// Package middlewarectx содержит HTTP middleware сервиса: аутентификацию по JWT,
// проверку роли, ограничение частоты запросов, метрики и заголовки безопасности.
//
// JWTMiddleware проверяет заголовок Authorization: Bearer <token> и кладет
// идентификатор, имя и роль пользователя в контекст запроса.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/storefront/internal/http/response"
	"github.com/magabrotheeeer/storefront/internal/lib/jwt"
	"github.com/magabrotheeeer/storefront/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID ключ для идентификатора пользователя в контексте
	UserID Key = "user_id"
	// User ключ для имени пользователя в контексте
	User Key = "username"
	// Role ключ для роли пользователя в контексте
	Role Key = "role"
)

const (
	msgAuthRequired = "Authentication required"
	msgInvalidToken = "Invalid token"
)

// TokenParser разбирает и проверяет access-токен.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// JWTMiddleware возвращает middleware, который пропускает только запросы с валидным access-токеном.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Info("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(msgAuthRequired))
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if tokenStr == "" {
				log.Info("empty bearer token")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(msgAuthRequired))
				return
			}

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Info("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(msgInvalidToken))
				return
			}

			ctx := context.WithValue(r.Context(), UserID, claims.UserID)
			ctx = context.WithValue(ctx, User, claims.Username)
			ctx = context.WithValue(ctx, Role, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFrom возвращает идентификатор пользователя, положенный JWTMiddleware.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserID).(string)
	return id, ok && id != ""
}

// RoleFrom возвращает роль пользователя из контекста.
func RoleFrom(ctx context.Context) string {
	role, _ := ctx.Value(Role).(string)
	return role
}
