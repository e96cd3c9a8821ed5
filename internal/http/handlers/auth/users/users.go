// Package users реализует список пользователей для администратора.
package users

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
	ListUsers(ctx context.Context) ([]models.User, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список пользователей
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.User
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.users"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	if list == nil {
		list = []models.User{}
	}

	log.Info("users listed", slog.Int("count", len(list)))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, list)
}
