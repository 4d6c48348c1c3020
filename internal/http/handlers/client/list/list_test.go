package list

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/access-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/access-gate/internal/models"
)

// MockService реализует интерфейс list.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, ownerUID string, limit, offset int) ([]*models.Client, error) {
	args := m.Called(ctx, ownerUID, limit, offset)
	if res := args.Get(0); res != nil {
		return res.([]*models.Client), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		url            string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "список с параметрами по умолчанию",
			url:  "/clients",
			setupMock: func(m *MockService) {
				m.On("List", mock.Anything, "uid-1", 10, 0).Return([]*models.Client{
					{ID: "client-1", OwnerUID: "uid-1", Name: "Ivan Petrov"},
					{ID: "client-2", OwnerUID: "uid-1", Name: "Anna Sidorova"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"list_count":2`,
		},
		{
			name: "лимит и смещение из запроса",
			url:  "/clients?limit=5&offset=20",
			setupMock: func(m *MockService) {
				m.On("List", mock.Anything, "uid-1", 5, 20).Return([]*models.Client{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"list_count":0`,
		},
		{
			name: "ошибка сервиса",
			url:  "/clients",
			setupMock: func(m *MockService) {
				m.On("List", mock.Anything, "uid-1", 10, 0).
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"failed to list clients"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			ctx := context.WithValue(req.Context(), middlewarectx.User, "testuser")
			ctx = context.WithValue(ctx, middlewarectx.UserUID, "uid-1")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
