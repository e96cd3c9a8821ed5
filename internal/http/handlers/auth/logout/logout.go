// Package logout реализует отзыв refresh-токена.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/storefront/internal/http/response"
	"github.com/magabrotheeeer/storefront/internal/lib/sl"
)

// Request содержит отзываемый refresh-токен.
type Request struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Handler обрабатывает выход из системы.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает отзыв refresh-токена.
type Service interface {
	Logout(ctx context.Context, refreshToken string) error
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
// @Summary Выход
// @Description Удаляет refresh-токен. Неизвестный или уже отозванный токен дает 400.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Refresh-токен"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Токен не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("refresh token revoked")
	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Message("Logged out successfully"))
}
