package handler

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"libris/internal/auth/service"
	"libris/internal/directory"
	jwttoken "libris/internal/jwt_token"
	"libris/pkg/domain"
	"libris/pkg/testutil"
)

const password = "correct horse battery staple"

func newAuthRouter(t *testing.T) (chi.Router, *jwttoken.JWTService) {
	t.Helper()

	users := directory.NewInMemory()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	accounts := []*directory.User{
		{ID: domain.UserID(uuid.New()), Nombre: "Lucía", Apellidos: "Martín", Email: "lucia@biblioteca.edu", Role: domain.RoleBibliotecario, PasswordHash: hash},
		{ID: domain.UserID(uuid.New()), Nombre: "María", Apellidos: "García", Email: "maria@biblioteca.edu", Role: domain.RoleEstudiante, PasswordHash: hash},
	}
	for _, u := range accounts {
		require.NoError(t, users.Create(t.Context(), u))
	}

	tokens := jwttoken.NewJWTService("test-signing-key", "libris", "libris-admin")
	svc := service.New(users, tokens)

	router := chi.NewRouter()
	New(svc, slog.Default(), nil).Register(router)
	return router, tokens
}

func login(t *testing.T, router chi.Router, email, pass string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", service.LoginRequest{Email: email, Password: pass})
	return testutil.DoRequest(router, req)
}

func TestLoginIssuesValidToken(t *testing.T) {
	router, tokens := newAuthRouter(t)

	rr := login(t, router, "lucia@biblioteca.edu", password)
	testutil.AssertStatus(t, rr, http.StatusOK)

	resp := testutil.UnmarshalResponse[service.LoginResponse](t, rr)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, domain.RoleBibliotecario, resp.Role)

	claims, err := tokens.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
	assert.Equal(t, []domain.Role{domain.RoleBibliotecario}, claims.Roles)
}

func TestLoginNormalizesEmail(t *testing.T) {
	router, _ := newAuthRouter(t)

	rr := login(t, router, "  LUCIA@biblioteca.edu ", password)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestLoginRejections(t *testing.T) {
	router, _ := newAuthRouter(t)

	t.Run("wrong password", func(t *testing.T) {
		rr := login(t, router, "lucia@biblioteca.edu", "wrong")
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("unknown email", func(t *testing.T) {
		rr := login(t, router, "nobody@biblioteca.edu", password)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("non-staff account with valid credentials", func(t *testing.T) {
		rr := login(t, router, "maria@biblioteca.edu", password)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("missing fields", func(t *testing.T) {
		rr := login(t, router, "", "")
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "validation_error")
	})
}
