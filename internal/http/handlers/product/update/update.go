// Package update реализует частичное обновление товара администратором.
package update

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/storefront/internal/http/response"
	"github.com/magabrotheeeer/storefront/internal/lib/sl"
	"github.com/magabrotheeeer/storefront/internal/models"
)

// Request изменяемые поля. Отсутствующие поля не меняются.
type Request struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1"`
	Description *string  `json:"description,omitempty" validate:"omitempty,min=1"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	ImageURL    *string  `json:"imageUrl,omitempty" validate:"omitempty,url"`
	InStock     *bool    `json:"inStock,omitempty"`
	Stock       *int     `json:"stock,omitempty" validate:"omitempty,min=0"`
}

func (req Request) patch() models.ProductPatch {
	return models.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		InStock:     req.InStock,
		Stock:       req.Stock,
	}
}

// Handler обрабатывает частичное обновление товара.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает обновление товара.
type Service interface {
	Update(ctx context.Context, rawID string, patch models.ProductPatch) (*models.Product, error)
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
// @Summary Обновить товар
// @Tags Products
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "ObjectID товара"
// @Param request body Request true "Изменяемые поля"
// @Success 200 {object} models.Product
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /products/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.product.update"

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

	p, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("product updated", slog.String("id", p.ID.Hex()))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, p)
}
