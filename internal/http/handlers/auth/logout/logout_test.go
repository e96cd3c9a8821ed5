package logout

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/storefront/internal/lib/apperr"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func TestLogoutHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("logout then repeat", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Logout", mock.Anything, "tok").Return(nil).Once()
		svc.On("Logout", mock.Anything, "tok").Return(apperr.Validation("Invalid refresh token")).Once()
		h := New(logger, svc)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(`{"refreshToken":"tok"}`)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true,"message":"Logged out successfully"}`, rec.Body.String())

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(`{"refreshToken":"tok"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"success":false,"message":"Invalid refresh token"}`, rec.Body.String())

		svc.AssertExpectations(t)
	})

	t.Run("missing token", func(t *testing.T) {
		svc := new(ServiceMock)
		rec := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "refreshToken is required", got["message"])
		svc.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
	})
}
