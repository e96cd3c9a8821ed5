package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/magabrotheeeer/storefront/internal/models"
)

// CreateProduct сохраняет товар и заполняет его ID и временные метки.
func (s *Storage) CreateProduct(ctx context.Context, product *models.Product) error {
	const op = "storage.CreateProduct"

	now := s.now()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now

	if _, err := s.products.InsertOne(ctx, product); err != nil {
		product.ID = primitive.NilObjectID
		return wrapWrite(op, err)
	}
	return nil
}

// ListProducts возвращает все товары, новые первыми.
func (s *Storage) ListProducts(ctx context.Context) ([]models.Product, error) {
	const op = "storage.ListProducts"

	cur, err := s.products.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	products := make([]models.Product, 0)
	if err := cur.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

// GetProduct возвращает товар по идентификатору.
func (s *Storage) GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	const op = "storage.GetProduct"

	var product models.Product
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", op, ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &product, nil
}

// UpdateProduct применяет частичное обновление и возвращает товар после изменения.
func (s *Storage) UpdateProduct(ctx context.Context, id primitive.ObjectID, patch models.ProductPatch) (*models.Product, error) {
	const op = "storage.UpdateProduct"

	set := bson.M{"updatedAt": s.now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.ImageURL != nil {
		set["imageUrl"] = *patch.ImageURL
	}
	if patch.InStock != nil {
		set["inStock"] = *patch.InStock
	}
	if patch.Stock != nil {
		set["stock"] = *patch.Stock
	}

	var product models.Product
	err := s.products.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", op, ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &product, nil
}

// DeleteProduct удаляет товар.
func (s *Storage) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	const op = "storage.DeleteProduct"

	res, err := s.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, ErrProductNotFound)
	}
	return nil
}
