// Package read реализует HTTP-обработчик получения товара по ID.
//
// ID берется из URL. Строка, не являющаяся ObjectID, дает 400 "Invalid product ID",
// отсутствующий товар дает 404.
package read

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/storefront/internal/http/response"
	"github.com/magabrotheeeer/storefront/internal/models"
)

// Handler обрабатывает запросы на получение товара.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает чтение товара.
type Service interface {
	Read(ctx context.Context, rawID string) (*models.Product, error)
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить товар
// @Tags Products
// @Produce json
// @Param id path string true "ObjectID товара"
// @Success 200 {object} models.Product
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Товар не найден"
// @Failure 500 {object} response.ErrorResponse
// @Router /products/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.product.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, err := h.service.Read(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, p)
}
