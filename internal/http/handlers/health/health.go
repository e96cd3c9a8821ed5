package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/storefront/internal/http/response"
	"github.com/magabrotheeeer/storefront/internal/lib/sl"
)

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	log *slog.Logger
	db  Pinger
}

func New(log *slog.Logger, db Pinger) *Handler {
	return &Handler{
		log: log,
		db:  db,
	}
}

// ServeHTTP godoc
// @Summary Проверка состояния
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("database unavailable", slog.String("op", op), sl.Err(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("Database unavailable"))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Message("ok"))
}
