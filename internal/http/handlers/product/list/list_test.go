package list

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/storefront/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) List(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]models.Product)
	return list, args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		mockList   []models.Product
		mockErr    error
		wantStatus int
		wantLen    int
	}{
		{
			name:       "two products",
			mockList:   []models.Product{{Name: "B"}, {Name: "A"}},
			wantStatus: http.StatusOK,
			wantLen:    2,
		},
		{
			name:       "empty catalog",
			wantStatus: http.StatusOK,
			wantLen:    0,
		},
		{
			name:       "storage error",
			mockErr:    errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			svc.On("List", mock.Anything).Return(tt.mockList, tt.mockErr).Once()

			rec := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.mockErr != nil {
				return
			}
			var got []models.Product
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Len(t, got, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, "B", got[0].Name)
			}
		})
	}
}
