// Package password реализует смену пароля аутентифицированным пользователем.
//
// После смены все refresh-токены пользователя отзываются.
package password

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/storefront/internal/http/response"
	"github.com/magabrotheeeer/storefront/internal/lib/sl"
)

// Request текущий и новый пароль.
type Request struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// Handler обрабатывает смену пароля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает смену пароля.
type Service interface {
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Смена пароля
// @Tags Auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body Request true "Пароли"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Неверный текущий пароль"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/password [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.password"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("Authentication required"))
		return
	}

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("password changed", slog.String("user_id", userID))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Message("Password updated successfully"))
}
