// Package create реализует HTTP-обработчик создания товара.
//
// Доступен только администратору. Тело запроса валидируется, товар сохраняется
// через ProductService, в ответе возвращается созданный документ со статусом 201.
package create

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
	"github.com/magabrotheeeer/storefront/internal/services/product"
)

// Request данные нового товара.
type Request struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	ImageURL    string  `json:"imageUrl,omitempty" validate:"omitempty,url"`
	InStock     *bool   `json:"inStock,omitempty"`
	Stock       int     `json:"stock,omitempty" validate:"omitempty,min=0"`
}

// Handler обрабатывает запросы на создание товара.
type Handler struct {
	log      *slog.Logger        // Логгер
	service  Service             // Сервис каталога
	validate *validator.Validate // Валидатор
}

// Service описывает создание товара.
type Service interface {
	Create(ctx context.Context, in product.CreateInput) (*models.Product, error)
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
// @Summary Создать товар
// @Tags Products
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body Request true "Товар"
// @Success 201 {object} models.Product
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /products [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.product.create"

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
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	p, err := h.service.Create(r.Context(), product.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		InStock:     req.InStock,
		Stock:       req.Stock,
	})
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("product created", slog.String("id", p.ID.Hex()))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, p)
}
