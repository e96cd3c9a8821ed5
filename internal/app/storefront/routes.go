// Package storefront собирает HTTP-приложение магазина: хранилище, кэш,
// публикацию событий, сервисы и маршруты.
package storefront

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/storefront/docs"

	"github.com/magabrotheeeer/storefront/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/storefront/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/storefront/internal/http/handlers/auth/password"
	"github.com/magabrotheeeer/storefront/internal/http/handlers/auth/refresh"
	"github.com/magabrotheeeer/storefront/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/storefront/internal/http/handlers/auth/users"
	"github.com/magabrotheeeer/storefront/internal/http/handlers/health"
	"github.com/magabrotheeeer/storefront/internal/http/handlers/product/create"
	"github.com/magabrotheeeer/storefront/internal/http/handlers/product/list"
	"github.com/magabrotheeeer/storefront/internal/http/handlers/product/read"
	"github.com/magabrotheeeer/storefront/internal/http/handlers/product/remove"
	"github.com/magabrotheeeer/storefront/internal/http/handlers/product/update"
	"github.com/magabrotheeeer/storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/storefront/internal/http/response"
	"github.com/magabrotheeeer/storefront/internal/lib/ratelimit"
	authservice "github.com/magabrotheeeer/storefront/internal/services/auth"
	productservice "github.com/magabrotheeeer/storefront/internal/services/product"
)

// RouteDeps зависимости маршрутизатора.
type RouteDeps struct {
	Env           string
	BasePath      string
	AllowedOrigin string
	// TrustProxy разрешает брать адрес клиента из X-Forwarded-For/X-Real-IP.
	// Без него лимит считается по адресу сокета.
	TrustProxy bool

	Auth     *authservice.AuthService
	Products *productservice.ProductService
	Tokens   middlewarectx.TokenParser
	Limiter  ratelimit.Limiter
	DB       health.Pinger

	Registry *prometheus.Registry
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps RouteDeps) {
	metrics := middlewarectx.NewMetrics(deps.Registry)

	// NotFound регистрируется до r.Use: chi оборачивает его текущими
	// middleware мукса, и иначе они выполнились бы дважды.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("Route not found"))
	})

	// Глобальные middleware
	global := []func(http.Handler) http.Handler{middleware.RequestID}
	if deps.TrustProxy {
		global = append(global, middleware.RealIP)
	}
	global = append(global,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{deps.AllowedOrigin},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middlewarectx.SecurityHeaders(deps.Env),
		metrics.Middleware,
		middlewarectx.RateLimitMiddleware(deps.Limiter, logger),
	)
	r.Use(global...)

	authenticate := middlewarectx.JWTMiddleware(deps.Tokens, logger)
	adminOnly := middlewarectx.RequireAdmin(logger)

	r.Route(basePath(deps.BasePath), func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", register.New(logger, deps.Auth).ServeHTTP)
			r.Post("/login", login.New(logger, deps.Auth).ServeHTTP)
			r.Post("/refresh-token", refresh.New(logger, deps.Auth).ServeHTTP)
			r.Post("/logout", logout.New(logger, deps.Auth).ServeHTTP)
			r.With(authenticate).Put("/password", password.New(logger, deps.Auth).ServeHTTP)
		})

		r.With(authenticate, adminOnly).Get("/users", users.New(logger, deps.Auth).ServeHTTP)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", list.New(logger, deps.Products).ServeHTTP)
			r.Get("/{id}", read.New(logger, deps.Products).ServeHTTP)

			// Группа для администратора
			r.Group(func(r chi.Router) {
				r.Use(authenticate, adminOnly)
				r.Post("/", create.New(logger, deps.Products).ServeHTTP)
				r.Put("/{id}", update.New(logger, deps.Products).ServeHTTP)
				r.Delete("/{id}", remove.New(logger, deps.Products).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, deps.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	docs.SwaggerInfo.BasePath = basePath(deps.BasePath)
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

func basePath(p string) string {
	return "/" + strings.Trim(p, "/")
}
