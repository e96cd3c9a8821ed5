// Package product содержит CRUD каталога товаров с read-through кэшем в Redis
// и публикацией событий об изменениях.
package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/magabrotheeeer/storefront/internal/events"
	"github.com/magabrotheeeer/storefront/internal/lib/apperr"
	"github.com/magabrotheeeer/storefront/internal/lib/sl"
	"github.com/magabrotheeeer/storefront/internal/models"
	"github.com/magabrotheeeer/storefront/internal/storage"
)

const (
	msgInvalidID   = "Invalid product ID"
	msgNotFound    = "Product not found"
	msgEmptyUpdate = "No fields to update"

	cacheKeyPrefix = "product:"
)

// Repository хранилище товаров.
type Repository interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	UpdateProduct(ctx context.Context, id primitive.ObjectID, patch models.ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error
}

// Cache кэш товаров по идентификатору.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// CreateInput данные нового товара. InStock по умолчанию true.
type CreateInput struct {
	Name        string
	Description string
	Price       float64
	ImageURL    string
	InStock     *bool
	Stock       int
}

// ProductService бизнес-логика каталога.
type ProductService struct {
	log    *slog.Logger
	repo   Repository
	cache  Cache
	events events.Publisher
	ttl    time.Duration
}

// NewProductService создает ProductService. ttl время жизни записи в кэше.
func NewProductService(log *slog.Logger, repo Repository, cache Cache, publisher events.Publisher, ttl time.Duration) *ProductService {
	return &ProductService{
		log:    log,
		repo:   repo,
		cache:  cache,
		events: publisher,
		ttl:    ttl,
	}
}

// Create добавляет товар.
func (s *ProductService) Create(ctx context.Context, in CreateInput) (*models.Product, error) {
	const op = "product.Create"

	inStock := true
	if in.InStock != nil {
		inStock = *in.InStock
	}
	p := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
		InStock:     inStock,
		Stock:       in.Stock,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	s.store(ctx, p)
	s.publish(ctx, events.ProductCreated, p)
	return p, nil
}

// List возвращает все товары.
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	const op = "product.List"

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return products, nil
}

// Read возвращает товар по hex-идентификатору, сначала из кэша.
func (s *ProductService) Read(ctx context.Context, rawID string) (*models.Product, error) {
	const op = "product.Read"

	id, err := storage.ParseID(rawID)
	if err != nil {
		return nil, apperr.Validation(msgInvalidID)
	}

	var cached models.Product
	found, err := s.cache.Get(ctx, cacheKey(id), &cached)
	if err != nil {
		s.log.Warn("product cache read failed", sl.Op(op), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	p, err := s.repo.GetProduct(ctx, id)
	if errors.Is(err, storage.ErrProductNotFound) {
		return nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	s.store(ctx, p)
	return p, nil
}

// Update частично обновляет товар.
func (s *ProductService) Update(ctx context.Context, rawID string, patch models.ProductPatch) (*models.Product, error) {
	const op = "product.Update"

	id, err := storage.ParseID(rawID)
	if err != nil {
		return nil, apperr.Validation(msgInvalidID)
	}
	if patch.Empty() {
		return nil, apperr.Validation(msgEmptyUpdate)
	}

	p, err := s.repo.UpdateProduct(ctx, id, patch)
	if errors.Is(err, storage.ErrProductNotFound) {
		return nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	s.store(ctx, p)
	s.publish(ctx, events.ProductUpdated, p)
	return p, nil
}

// Remove удаляет товар.
func (s *ProductService) Remove(ctx context.Context, rawID string) error {
	const op = "product.Remove"

	id, err := storage.ParseID(rawID)
	if err != nil {
		return apperr.Validation(msgInvalidID)
	}

	err = s.repo.DeleteProduct(ctx, id)
	if errors.Is(err, storage.ErrProductNotFound) {
		return apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if err := s.cache.Invalidate(ctx, cacheKey(id)); err != nil {
		s.log.Warn("product cache invalidation failed", sl.Op(op), sl.Err(err))
	}
	s.publish(ctx, events.ProductDeleted, map[string]string{"id": id.Hex()})
	return nil
}

func (s *ProductService) store(ctx context.Context, p *models.Product) {
	if err := s.cache.Set(ctx, cacheKey(p.ID), p, s.ttl); err != nil {
		s.log.Warn("product cache write failed", slog.String("product_id", p.ID.Hex()), sl.Err(err))
	}
}

func (s *ProductService) publish(ctx context.Context, eventType string, payload any) {
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.log.Error("failed to publish event", slog.String("event", eventType), sl.Err(err))
	}
}

func cacheKey(id primitive.ObjectID) string {
	return cacheKeyPrefix + id.Hex()
}
