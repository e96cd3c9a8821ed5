package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/magabrotheeeer/storefront/internal/lib/apperr"
	"github.com/magabrotheeeer/storefront/internal/models"
	"github.com/magabrotheeeer/storefront/internal/services/auth"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Register(ctx context.Context, in auth.RegisterInput) (*auth.Result, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*auth.Result)
	return res, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Username: "alice", Email: "alice@example.com", Role: models.RoleUser, PasswordHash: "$argon2id$secret"}

	tests := []struct {
		name        string
		body        any
		setupMock   func(m *ServiceMock)
		wantStatus  int
		wantMessage string
		wantTokens  bool
	}{
		{
			name: "success",
			body: Request{Username: "alice", Email: "alice@example.com", Password: "secret1"},
			setupMock: func(m *ServiceMock) {
				m.On("Register", mock.Anything, auth.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1"}).
					Return(&auth.Result{Tokens: auth.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, User: user}, nil).Once()
			},
			wantStatus:  http.StatusCreated,
			wantMessage: "User registered successfully",
			wantTokens:  true,
		},
		{
			name:        "invalid json",
			body:        "{not json",
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid request body",
		},
		{
			name:        "invalid email",
			body:        Request{Username: "alice", Email: "nope", Password: "secret1"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "email must be a valid email",
		},
		{
			name:        "short password",
			body:        Request{Username: "alice", Email: "alice@example.com", Password: "123"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "password must be at least 6",
		},
		{
			name:        "unknown role",
			body:        Request{Username: "alice", Email: "alice@example.com", Password: "secret1", Role: "root"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "role must be one of: user admin",
		},
		{
			name: "duplicate",
			body: Request{Username: "alice", Email: "alice@example.com", Password: "secret1"},
			setupMock: func(m *ServiceMock) {
				m.On("Register", mock.Anything, mock.Anything).
					Return(nil, apperr.Conflict("User with this email already exists")).Once()
			},
			wantStatus:  http.StatusConflict,
			wantMessage: "User with this email already exists",
		},
		{
			name: "internal error is not echoed",
			body: Request{Username: "alice", Email: "alice@example.com", Password: "secret1"},
			setupMock: func(m *ServiceMock) {
				m.On("Register", mock.Anything, mock.Anything).Return(nil, errors.New("mongo: connection refused")).Once()
			},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}

			var body []byte
			if s, ok := tt.body.(string); ok {
				body = []byte(s)
			} else {
				var err error
				body, err = json.Marshal(tt.body)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			rec := httptest.NewRecorder()

			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.wantMessage, got["message"])
			if tt.wantTokens {
				assert.Equal(t, true, got["success"])
				assert.Equal(t, "acc", got["accessToken"])
				assert.Equal(t, "ref", got["refreshToken"])
				u, ok := got["user"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "alice", u["username"])
				assert.NotContains(t, u, "password")
				assert.NotContains(t, u, "PasswordHash")
			} else {
				assert.Equal(t, false, got["success"])
			}
			svc.AssertExpectations(t)
		})
	}
}
