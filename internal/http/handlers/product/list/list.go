// Package list реализует получение всех товаров, новые первыми.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/storefront/internal/http/response"
	"github.com/magabrotheeeer/storefront/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	List(ctx context.Context) ([]models.Product, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список товаров
// @Tags Products
// @Produce json
// @Success 200 {array} models.Product
// @Failure 500 {object} response.ErrorResponse
// @Router /products [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.product.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	res, err := h.service.List(r.Context())
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	if res == nil {
		res = []models.Product{}
	}

	log.Debug("products listed", slog.Int("count", len(res)))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, res)
}
