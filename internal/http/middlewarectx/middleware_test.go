package middlewarectx_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/storefront/internal/lib/jwt"
	"github.com/magabrotheeeer/storefront/internal/lib/ratelimit"
)

type TokenParserMock struct {
	mock.Mock
}

func (m *TokenParserMock) ParseToken(token string) (*jwt.CustomClaims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*jwt.CustomClaims)
	return claims, args.Error(1)
}

type LimiterMock struct {
	mock.Mock
}

func (m *LimiterMock) Allow(ctx context.Context, key string) (ratelimit.Result, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(ratelimit.Result), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, false, got["success"])
	msg, _ := got["message"].(string)
	return msg
}

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		mockClaims     *jwt.CustomClaims
		mockErr        error
		wantStatusCode int
		wantMessage    string
		wantCalled     bool
	}{
		{
			name:           "missing Authorization header",
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    "Authentication required",
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    "Authentication required",
		},
		{
			name:           "empty bearer",
			authHeader:     "Bearer   ",
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    "Authentication required",
		},
		{
			name:           "token rejected",
			authHeader:     "Bearer bad",
			mockErr:        errors.New("token is expired"),
			wantStatusCode: http.StatusUnauthorized,
			wantMessage:    "Invalid token",
		},
		{
			name:           "valid token",
			authHeader:     "Bearer good",
			mockClaims:     &jwt.CustomClaims{UserID: "64b7f0c2a1b2c3d4e5f60718", Username: "alice", Role: "user"},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := new(TokenParserMock)
			if tt.mockClaims != nil || tt.mockErr != nil {
				parser.On("ParseToken", strings.TrimPrefix(tt.authHeader, "Bearer ")).Return(tt.mockClaims, tt.mockErr).Once()
			}

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				id, ok := middlewarectx.UserIDFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", id)
				assert.Equal(t, "alice", r.Context().Value(middlewarectx.User))
				assert.Equal(t, "user", middlewarectx.RoleFrom(r.Context()))
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/somepath", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			middlewarectx.JWTMiddleware(parser, newNoopLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, decodeMessage(t, rec))
			}
			parser.AssertExpectations(t)
		})
	}
}

func TestJWTMiddleware_RealTokens(t *testing.T) {
	maker := jwt.NewJWTMaker("secret", time.Hour)
	token, err := maker.GenerateToken("64b7f0c2a1b2c3d4e5f60718", "alice", "admin")
	require.NoError(t, err)

	h := middlewarectx.JWTMiddleware(maker, newNoopLogger())(middlewarectx.RequireAdmin(newNoopLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	))

	req := httptest.NewRequest(http.MethodDelete, "/products/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	forged, err := jwt.NewJWTMaker("other", time.Hour).GenerateToken("64b7f0c2a1b2c3d4e5f60718", "alice", "admin")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodDelete, "/products/1", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		role       string
		wantStatus int
		wantMsg    string
	}{
		{name: "admin passes", userID: "id", role: "admin", wantStatus: http.StatusOK},
		{name: "user forbidden", userID: "id", role: "user", wantStatus: http.StatusForbidden, wantMsg: "Admin privileges required"},
		{name: "unauthenticated", wantStatus: http.StatusUnauthorized, wantMsg: "Authentication required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/products", nil)
			ctx := req.Context()
			if tt.userID != "" {
				ctx = context.WithValue(ctx, middlewarectx.UserID, tt.userID)
				ctx = context.WithValue(ctx, middlewarectx.Role, tt.role)
			}
			rec := httptest.NewRecorder()

			middlewarectx.RequireAdmin(newNoopLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(rec, req.WithContext(ctx))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decodeMessage(t, rec))
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("allowed sets headers", func(t *testing.T) {
		limiter := new(LimiterMock)
		limiter.On("Allow", mock.Anything, "10.0.0.1").
			Return(ratelimit.Result{Allowed: true, Limit: 100, Remaining: 99, Reset: 15 * time.Minute}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		middlewarectx.RateLimitMiddleware(limiter, newNoopLogger())(ok).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "100", rec.Header().Get("RateLimit-Limit"))
		assert.Equal(t, "99", rec.Header().Get("RateLimit-Remaining"))
		assert.Equal(t, "900", rec.Header().Get("RateLimit-Reset"))
		limiter.AssertExpectations(t)
	})

	t.Run("blocked", func(t *testing.T) {
		limiter := new(LimiterMock)
		limiter.On("Allow", mock.Anything, "10.0.0.1").
			Return(ratelimit.Result{Allowed: false, Limit: 100, Remaining: 0, Reset: 90 * time.Second}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		middlewarectx.RateLimitMiddleware(limiter, newNoopLogger())(ok).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "Too many requests", decodeMessage(t, rec))
		assert.Equal(t, "90", rec.Header().Get("Retry-After"))
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		limiter := new(LimiterMock)
		limiter.On("Allow", mock.Anything, mock.Anything).Return(ratelimit.Result{}, errors.New("redis down")).Once()

		rec := httptest.NewRecorder()
		middlewarectx.RateLimitMiddleware(limiter, newNoopLogger())(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("memory limiter end to end", func(t *testing.T) {
		limiter, err := ratelimit.NewMemory(2, time.Hour)
		require.NoError(t, err)
		defer limiter.Stop()
		h := middlewarectx.RateLimitMiddleware(limiter, newNoopLogger())(ok)

		codes := make([]int, 0, 3)
		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:1000"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middlewarectx.NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/"+id, nil))
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	var series []string
	for _, mf := range families {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "path" {
					series = append(series, lp.GetValue())
				}
			}
			assert.Equal(t, float64(2), metric.GetCounter().GetValue())
		}
	}
	assert.Equal(t, []string{"/products/{id}"}, series)
}

func TestMetrics_UnmatchedRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middlewarectx.NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/products", func(w http.ResponseWriter, _ *http.Request) {})

	for _, p := range []string{"/scan/1", "/scan/2", "/.env"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	paths := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "path" {
					paths[lp.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{middlewarectx.UnmatchedPath: 3}, paths)
}

func TestSecurityHeaders(t *testing.T) {
	h := middlewarectx.SecurityHeaders("prod")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}
