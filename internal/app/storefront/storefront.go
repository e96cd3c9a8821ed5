package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/storefront/internal/cache"
	"github.com/magabrotheeeer/storefront/internal/config"
	"github.com/magabrotheeeer/storefront/internal/events"
	"github.com/magabrotheeeer/storefront/internal/lib/jwt"
	"github.com/magabrotheeeer/storefront/internal/lib/password"
	"github.com/magabrotheeeer/storefront/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/storefront/internal/lib/ratelimit"
	"github.com/magabrotheeeer/storefront/internal/lib/sl"
	"github.com/magabrotheeeer/storefront/internal/migrations"
	authservice "github.com/magabrotheeeer/storefront/internal/services/auth"
	productservice "github.com/magabrotheeeer/storefront/internal/services/product"
	"github.com/magabrotheeeer/storefront/internal/storage"
)

// App HTTP-приложение магазина со всеми внешними ресурсами.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	cfg      *config.Config
	db       *storage.Storage
	redis    *redis.Client
	amqp     *amqp.Connection
	events   events.Publisher
	memLimit *ratelimit.Memory
}

// New подключается к MongoDB, применяет миграции и собирает сервисы.
// Redis и RabbitMQ необязательны: без них используются кэш-заглушка,
// лимитер в памяти процесса и публикатор-заглушка.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "storefront.New"

	app := &App{logger: logger, cfg: cfg}

	db, err := storage.New(ctx, cfg.MongoURI, cfg.Database, cfg.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.db = db

	version, err := migrations.Run(db.Client(), db.DatabaseName(), cfg.MigrationsPath)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("migrations applied",
		slog.String("path", cfg.MigrationsPath),
		slog.Uint64("version", uint64(version)),
	)

	var (
		productCache productservice.Cache = cache.Noop{}
		limiter      ratelimit.Limiter
	)
	if cfg.AddressRedis != "" {
		client, err := cache.NewClient(ctx, cfg.RedisConnection)
		if err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.redis = client
		productCache = cache.New(client)
		limiter, err = ratelimit.NewRedis(client, cfg.Requests, cfg.Window)
		if err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("redis connected")
	} else {
		app.memLimit, err = ratelimit.NewMemory(cfg.Requests, cfg.Window)
		if err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		limiter = app.memLimit
		logger.Warn("REDIS_URL is empty, using in-process rate limiter and no product cache")
	}

	app.events = events.Noop{}
	if cfg.AMQPURL != "" {
		conn, err := rabbitmq.Connect(ctx, cfg.AMQPURL, cfg.Retries, cfg.RetryDelay)
		if err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.amqp = conn
		publisher, err := events.NewAMQPPublisher(conn, cfg.Exchange)
		if err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.events = publisher
		logger.Info("rabbitmq connected", slog.String("exchange", cfg.Exchange))
	}

	hasher, err := password.NewHasher(password.Params{
		Memory:      cfg.Memory,
		Iterations:  cfg.Iterations,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	maker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authService := authservice.NewAuthService(
		logger,
		authservice.NewCredentialStore(db, hasher),
		authservice.NewIssuer(maker, db, cfg.RefreshTokenTTL),
		db,
		app.events,
	)
	productService := productservice.NewProductService(logger, db, productCache, app.events, cfg.ProductTTL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, RouteDeps{
		Env:           cfg.Env,
		BasePath:      cfg.BasePath,
		AllowedOrigin: cfg.AllowedOrigin,
		TrustProxy:    cfg.TrustProxy,
		Auth:          authService,
		Products:      productService,
		Tokens:        maker,
		Limiter:       limiter,
		DB:            db,
		Registry:      registry,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает HTTP-сервер и корректно останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close(context.Background())
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownPeriod)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close(timeoutCtx)
		return err
	}
}

func (a *App) close(ctx context.Context) {
	if p, ok := a.events.(*events.AMQPPublisher); ok {
		if err := p.Close(); err != nil {
			a.logger.Error("failed to close event channel", sl.Err(err))
		}
	}
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Error("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if a.memLimit != nil {
		a.memLimit.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(ctx); err != nil {
			a.logger.Error("failed to disconnect mongo", sl.Err(err))
		}
	}
}
