// Package login реализует HTTP-обработчик входа по email и паролю.
//
// При успешной проверке пароля выдается новая пара токенов. Ранее выданные
// refresh-токены пользователя продолжают действовать.
package login

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/storefront/internal/http/response"
	"github.com/magabrotheeeer/storefront/internal/lib/sl"
	"github.com/magabrotheeeer/storefront/internal/models"
	"github.com/magabrotheeeer/storefront/internal/services/auth"
)

// Request учетные данные для входа.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Response ответ на успешный вход.
type Response struct {
	Success      bool         `json:"success" example:"true"`
	Message      string       `json:"message" example:"Logged in successfully"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user"`
}

// Handler обрабатывает HTTP-запросы для авторизации.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает бизнес-логику входа.
type Service interface {
	Login(ctx context.Context, email, password string) (*auth.Result, error)
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
// @Summary Вход пользователя
// @Description Аутентифицирует пользователя по email и паролю. Возвращает JWT и refresh-токен.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Учетные данные пользователя"
// @Success 201 {object} Response
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

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

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("login success", slog.String("user_id", res.User.ID.Hex()))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Response{
		Success:      true,
		Message:      "Logged in successfully",
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		User:         res.User,
	})
}
