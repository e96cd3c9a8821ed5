// Package register реализует HTTP-обработчик регистрации пользователя.
//
// Тело запроса декодируется и валидируется, после чего AuthService создает пользователя
// с argon2id-хэшем пароля и выдает пару токенов. В ответе пароль не возвращается.
package register

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

// Request входные данные регистрации.
type Request struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

// Response ответ на успешную регистрацию.
type Response struct {
	Success      bool         `json:"success" example:"true"`
	Message      string       `json:"message" example:"User registered successfully"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user"`
}

// Handler обрабатывает запросы на регистрацию.
type Handler struct {
	log      *slog.Logger        // Логгер
	service  Service             // Сервис аутентификации
	validate *validator.Validate // Валидатор входных данных
}

// Service описывает бизнес-логику регистрации.
type Service interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Result, error)
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
// @Summary Регистрация пользователя
// @Description Создает пользователя и возвращает access- и refresh-токены.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Данные пользователя"
// @Success 201 {object} Response
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 409 {object} response.ErrorResponse "Пользователь уже существует"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

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
	log.Info("request body decoded", slog.String("username", req.Username), slog.String("email", req.Email))

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	res, err := h.service.Register(r.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("user registered", slog.String("user_id", res.User.ID.Hex()))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Response{
		Success:      true,
		Message:      "User registered successfully",
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		User:         res.User,
	})
}
