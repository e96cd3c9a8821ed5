// Package storage реализует хранилище магазина на MongoDB: пользователи,
// refresh-токены и товары. Уникальность email, username и токенов
// обеспечивается индексами, которые создают миграции.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection         = "users"
	refreshTokensCollection = "refresh_tokens"
	productsCollection      = "products"
)

// Storage инкапсулирует клиент MongoDB и коллекции сервиса.
type Storage struct {
	client        *mongo.Client
	db            *mongo.Database
	users         *mongo.Collection
	refreshTokens *mongo.Collection
	products      *mongo.Collection
	now           func() time.Time
}

// New подключается к MongoDB и проверяет соединение.
func New(ctx context.Context, uri, database string, timeout time.Duration) (*Storage, error) {
	const op = "storage.New"

	opts := options.Client().ApplyURI(uri).SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return newStorage(client, database), nil
}

func newStorage(client *mongo.Client, database string) *Storage {
	db := client.Database(database)
	return &Storage{
		client:        client,
		db:            db,
		users:         db.Collection(usersCollection),
		refreshTokens: db.Collection(refreshTokensCollection),
		products:      db.Collection(productsCollection),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Client возвращает клиент MongoDB, используется миграциями.
func (s *Storage) Client() *mongo.Client {
	return s.client
}

// DatabaseName имя базы данных сервиса.
func (s *Storage) DatabaseName() string {
	return s.db.Name()
}

// Ping проверяет доступность базы данных.
func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.Ping"
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает соединение с MongoDB.
func (s *Storage) Close(ctx context.Context) error {
	const op = "storage.Close"
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
