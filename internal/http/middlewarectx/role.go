package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/storefront/internal/http/response"
	"github.com/magabrotheeeer/storefront/internal/models"
)

const msgAdminRequired = "Admin privileges required"

// RequireAdmin пропускает только пользователей с ролью admin. Ставится после JWTMiddleware.
func RequireAdmin(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFrom(r.Context()); !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(msgAuthRequired))
				return
			}
			if RoleFrom(r.Context()) != models.RoleAdmin {
				log.Info("admin route denied",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.Any("username", r.Context().Value(User)),
				)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error(msgAdminRequired))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
