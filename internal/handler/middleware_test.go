package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/finloop/loan-management/internal/config"
	"github.com/finloop/loan-management/internal/domain"
	"github.com/finloop/loan-management/internal/service"
	"github.com/finloop/loan-management/tests/mocks"
	"github.com/google/uuid"
)

func testAuthService(t *testing.T, user *domain.User) (*service.AuthService, string) {
	t.Helper()

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:     "middleware-test-secret",
			Issuer:     "loan-management-test",
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
		},
		OTP: config.OTPConfig{TTL: time.Minute},
	}

	mockUsers := &mocks.MockUserRepository{}
	mockUsers.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	svc := service.NewAuthService(mockUsers, &mocks.MockOTPStore{}, &mocks.MockMailer{}, cfg, zap.NewNop())

	tokens, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    user.Email,
		Password: "password-123",
	})
	require.NoError(t, err)

	return svc, tokens.AccessToken
}

func testUser(t *testing.T, role domain.Role) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password-123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		ID:           uuid.New(),
		Email:        string(role) + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
		IsVerified:   true,
	}
}

func protectedRouter(authSvc *service.AuthService) *mux.Router {
	authMW := NewAuthMiddleware(authSvc)

	router := mux.NewRouter()
	loans := router.PathPrefix("/loans").Subrouter()
	loans.Use(authMW.Authenticate)
	loans.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(authMW.Authenticate)
	admin.Use(RequireRole(domain.RoleAdmin))
	admin.HandleFunc("/loans", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	return router
}

func TestAuthenticate(t *testing.T) {
	user := testUser(t, domain.RoleUser)
	svc, token := testAuthService(t, user)
	router := protectedRouter(svc)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/loans", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/loans", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/loans", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid access token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/loans", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	t.Run("user role is forbidden on admin routes", func(t *testing.T) {
		user := testUser(t, domain.RoleUser)
		svc, token := testAuthService(t, user)
		router := protectedRouter(svc)

		req := httptest.NewRequest("GET", "/admin/loans", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin role passes", func(t *testing.T) {
		admin := testUser(t, domain.RoleAdmin)
		svc, token := testAuthService(t, admin)
		router := protectedRouter(svc)

		req := httptest.NewRequest("GET", "/admin/loans", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
