package middlewarectx

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/storefront/internal/http/response"
	"github.com/magabrotheeeer/storefront/internal/lib/ratelimit"
	"github.com/magabrotheeeer/storefront/internal/lib/sl"
)

// RateLimitMiddleware ограничивает число запросов с одного IP. При недоступности
// хранилища лимитов запрос пропускается.
func RateLimitMiddleware(limiter ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), clientIP(r.RemoteAddr))
			if err != nil {
				log.Error("rate limiter unavailable", sl.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("RateLimit-Reset", strconv.Itoa(int(math.Ceil(res.Reset.Seconds()))))

			if !res.Allowed {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(res.Reset.Seconds()))))
				log.Warn("too many requests", slog.String("remote_addr", r.RemoteAddr))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("Too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
