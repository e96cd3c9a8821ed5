// Package refresh реализует погашение refresh-токена с ротацией.
package refresh

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/storefront/internal/http/response"
	"github.com/magabrotheeeer/storefront/internal/lib/sl"
	"github.com/magabrotheeeer/storefront/internal/services/auth"
)

// Request содержит погашаемый refresh-токен.
type Request struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Handler обрабатывает обновление пары токенов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает ротацию токенов.
type Service interface {
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
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
// @Summary Обновление токенов
// @Description Погашает refresh-токен и выдает новую пару. Повторное погашение отклоняется.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Refresh-токен"
// @Success 200 {object} auth.TokenPair
// @Failure 400 {object} response.ErrorResponse "Токен не передан"
// @Failure 401 {object} response.ErrorResponse "Токен недействителен или истек"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/refresh-token [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.refresh"

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

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("tokens rotated")
	render.Status(r, http.StatusOK)
	render.JSON(w, r, pair)
}
