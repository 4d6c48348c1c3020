package middlewarectx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/access-gate/internal/services/access"
)

type ValidatorMock struct{ mock.Mock }

func (m *ValidatorMock) ValidateToken(ctx context.Context, token string) (*access.Identity, error) {
	args := m.Called(ctx, token)
	if identity := args.Get(0); identity != nil {
		return identity.(*access.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		mockSetup      func(m *ValidatorMock)
		expectedStatus int
		expectedBody   string
		expectNext     bool
	}{
		{
			name:           "нет заголовка Authorization",
			authHeader:     "",
			mockSetup:      func(_ *ValidatorMock) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"missing or invalid authorization header"`,
		},
		{
			name:           "заголовок без Bearer",
			authHeader:     "Token abc",
			mockSetup:      func(_ *ValidatorMock) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"missing or invalid authorization header"`,
		},
		{
			name:       "невалидный токен",
			authHeader: "Bearer bad-token",
			mockSetup: func(m *ValidatorMock) {
				m.On("ValidateToken", mock.Anything, "bad-token").
					Return(nil, errors.New("token is malformed"))
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"invalid or expired token"`,
		},
		{
			name:       "валидный токен, личность попадает в контекст",
			authHeader: "Bearer good-token",
			mockSetup: func(m *ValidatorMock) {
				m.On("ValidateToken", mock.Anything, "good-token").
					Return(&access.Identity{UserUID: "uid-1", Username: "testuser"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectNext:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := new(ValidatorMock)
			tt.mockSetup(validator)

			var gotIdentity *access.Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotIdentity = IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/clients/list", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			rr := httptest.NewRecorder()
			JWTMiddleware(validator, newNoopLogger())(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rr.Body.String(), tt.expectedBody)
			}
			if tt.expectNext {
				assert.Equal(t, &access.Identity{UserUID: "uid-1", Username: "testuser"}, gotIdentity)
			} else {
				assert.Nil(t, gotIdentity)
			}
			validator.AssertExpectations(t)
		})
	}
}
