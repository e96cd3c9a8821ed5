package storefront

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/magabrotheeeer/storefront/internal/models"
	"github.com/magabrotheeeer/storefront/internal/storage"
)

// memStore хранилище в памяти с тем же поведением ошибок, что и storage.Storage.
type memStore struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]models.User
	tokens   map[string]models.RefreshToken
	products map[primitive.ObjectID]models.Product
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[primitive.ObjectID]models.User),
		tokens:   make(map[string]models.RefreshToken),
		products: make(map[primitive.ObjectID]models.Product),
	}
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) CreateUser(_ context.Context, user *models.User) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, &storage.DuplicateError{Index: storage.IndexEmailUnique}
		}
		if u.Username == user.Username {
			return primitive.NilObjectID, &storage.DuplicateError{Index: storage.IndexUsernameUnique}
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = *user
	return user.ID, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *memStore) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &u, nil
}

func (m *memStore) UpdateUserPassword(_ context.Context, id primitive.ObjectID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}

func (m *memStore) ListUsers(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memStore) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = *token
	return nil
}

func (m *memStore) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, storage.ErrRefreshTokenNotFound
	}
	return &t, nil
}

func (m *memStore) DeleteRefreshToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[token]; !ok {
		return storage.ErrRefreshTokenNotFound
	}
	delete(m.tokens, token)
	return nil
}

func (m *memStore) DeleteAndReissue(_ context.Context, oldToken string, next *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[next.Token]; ok {
		return storage.ErrDuplicate
	}
	if _, ok := m.tokens[oldToken]; !ok {
		return storage.ErrRefreshTokenNotFound
	}
	delete(m.tokens, oldToken)
	m.tokens[next.Token] = *next
	return nil
}

func (m *memStore) DeleteUserRefreshTokens(_ context.Context, userID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, k)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = *p
	return nil
}

func (m *memStore) ListProducts(context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) GetProduct(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return &p, nil
}

func (m *memStore) UpdateProduct(_ context.Context, id primitive.ObjectID, patch models.ProductPatch) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}
	if patch.InStock != nil {
		p.InStock = *patch.InStock
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	p.UpdatedAt = time.Now()
	m.products[id] = p
	return &p, nil
}

func (m *memStore) DeleteProduct(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return storage.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}
