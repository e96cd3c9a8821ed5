// Package remove реализует удаление товара администратором.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/storefront/internal/http/response"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Remove(ctx context.Context, rawID string) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить товар
// @Tags Products
// @Security BearerAuth
// @Produce json
// @Param id path string true "ObjectID товара"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /products/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.product.remove"

	id := chi.URLParam(r, "id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("id", id),
	)

	if err := h.service.Remove(r.Context(), id); err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("product removed")
	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Message("Product removed"))
}
