package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris/internal/catalog"
	"libris/internal/directory"
	"libris/internal/loan/models"
	"libris/internal/loan/service"
	loanstore "libris/internal/loan/store/loans"
	policystore "libris/internal/loan/store/policy"
	"libris/internal/platform/middleware"
	"libris/pkg/domain"
	"libris/pkg/testutil"
)

const (
	staffToken   = "staff-token"
	studentToken = "student-token"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	switch token {
	case staffToken:
		return &middleware.JWTClaims{UserID: uuid.NewString(), Roles: []domain.Role{domain.RoleBibliotecario}}, nil
	case studentToken:
		return &middleware.JWTClaims{UserID: uuid.NewString(), Roles: []domain.Role{domain.RoleEstudiante}}, nil
	default:
		return nil, errors.New("unknown token")
	}
}

type testEnv struct {
	router  chi.Router
	book    *catalog.Book
	student *directory.User
	loans   *loanstore.InMemory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	books := catalog.NewInMemory()
	users := directory.NewInMemory()
	loans := loanstore.NewInMemory()

	book := &catalog.Book{ID: domain.BookID(uuid.New()), Title: "La sombra del viento", Author: "Carlos Ruiz Zafón"}
	require.NoError(t, books.Create(t.Context(), book))

	student := &directory.User{
		ID:        domain.UserID(uuid.New()),
		Nombre:    "María",
		Apellidos: "García",
		Email:     "maria.garcia@biblioteca.edu",
		Role:      domain.RoleEstudiante,
	}
	require.NoError(t, users.Create(t.Context(), student))

	svc := service.New(
		loans,
		policystore.NewInMemory(models.DefaultPolicy()),
		books,
		users,
		service.WithLogger(slog.Default()),
	)

	router := chi.NewRouter()
	New(svc, slog.Default(), nil, stubValidator{}).Register(router)
	return &testEnv{router: router, book: book, student: student, loans: loans}
}

func (e *testEnv) createLoan(t *testing.T) models.LoanView {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/prestamos", models.CreateLoanRequest{
		BookID: e.book.ID.String(),
		UserID: e.student.ID.String(),
	})
	req.Header.Set("Authorization", "Bearer "+staffToken)
	rr := testutil.DoRequest(e.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return *testutil.UnmarshalResponse[models.LoanView](t, rr)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing token", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/admin/prestamos")
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("invalid token", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/admin/prestamos")
		req.Header.Set("Authorization", "Bearer nope")
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("non-staff role", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/admin/prestamos")
		req.Header.Set("Authorization", "Bearer "+studentToken)
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})
}

func TestCreateAndListLoans(t *testing.T) {
	env := newTestEnv(t)
	created := env.createLoan(t)
	assert.Equal(t, models.LoanStatusCheckedOut, created.Status)

	req := testutil.NewRequest(t, http.MethodGet, "/admin/prestamos")
	req.Header.Set("Authorization", "Bearer "+staffToken)
	rr := testutil.DoRequest(env.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	// The admin frontend depends on the Spanish field names.
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(testutil.ReadBody(t, rr), &raw))
	require.Len(t, raw, 1)
	for _, key := range []string{"fechaPrestamo", "fechaDevolucion", "estado", "vencido", "libroTitulo", "usuario", "userEmail"} {
		assert.Contains(t, raw[0], key)
	}
	assert.Equal(t, "prestado", raw[0]["estado"])
	assert.Equal(t, false, raw[0]["vencido"])
	assert.Equal(t, "La sombra del viento", raw[0]["libroTitulo"])
	assert.Equal(t, "María García", raw[0]["usuario"])
}

func TestListFilterValidation(t *testing.T) {
	env := newTestEnv(t)

	req := testutil.NewRequest(t, http.MethodGet, "/admin/prestamos?estado=perdido")
	req.Header.Set("Authorization", "Bearer "+staffToken)
	rr := testutil.DoRequest(env.router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "validation_error")
}

func TestReturnLoan(t *testing.T) {
	env := newTestEnv(t)
	created := env.createLoan(t)

	req := testutil.NewRequest(t, http.MethodPut, "/admin/prestamos/"+created.ID.String()+"/devolver")
	req.Header.Set("Authorization", "Bearer "+staffToken)
	rr := testutil.DoRequest(env.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	view := testutil.UnmarshalResponse[models.LoanView](t, rr)
	assert.Equal(t, models.LoanStatusReturned, view.Status)
	assert.False(t, view.Overdue)
}

func TestReturnUnknownLoan(t *testing.T) {
	env := newTestEnv(t)

	req := testutil.NewRequest(t, http.MethodPut, "/admin/prestamos/"+uuid.NewString()+"/devolver")
	req.Header.Set("Authorization", "Bearer "+staffToken)
	rr := testutil.DoRequest(env.router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestApplyPenalty(t *testing.T) {
	env := newTestEnv(t)
	created := env.createLoan(t)

	t.Run("applies penalty", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost,
			"/admin/prestamos/"+created.ID.String()+"/penalizacion",
			models.ApplyPenaltyRequest{Days: 5, Reason: "libro dañado"})
		req.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(testutil.ReadBody(t, rr), &raw))
		penalty, ok := raw["penalizacion"].(map[string]any)
		require.True(t, ok, "response must carry penalizacion")
		assert.Equal(t, float64(5), penalty["dias"])
		assert.Equal(t, "libro dañado", penalty["razon"])
		assert.Contains(t, penalty, "fechaAplicacion")
	})

	t.Run("rejects invalid penalty", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost,
			"/admin/prestamos/"+created.ID.String()+"/penalizacion",
			models.ApplyPenaltyRequest{Days: 0, Reason: ""})
		req.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "validation_error")
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/admin/prestamos/"+created.ID.String()+"/penalizacion")
		req.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	t.Run("rejects malformed loan id", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/prestamos/not-a-uuid/penalizacion",
			models.ApplyPenaltyRequest{Days: 5, Reason: "retraso"})
		req.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "invalid_input")
	})
}

func TestPolicyEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("reads the active policy", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/admin/prestamos/config")
		req.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		policy := testutil.UnmarshalResponse[models.LoanPolicy](t, rr)
		assert.Equal(t, 7, policy.DaysByRole[domain.RoleEstudiante])
	})

	t.Run("replaces the policy", func(t *testing.T) {
		next := models.DefaultPolicy()
		next.DaysByRole[domain.RoleEstudiante] = 10

		req := testutil.NewJSONRequest(t, http.MethodPut, "/admin/prestamos/config", next)
		req.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		updated := testutil.UnmarshalResponse[models.LoanPolicy](t, rr)
		assert.Equal(t, 10, updated.DaysByRole[domain.RoleEstudiante])
	})

	t.Run("rejects invalid policy", func(t *testing.T) {
		bad := models.LoanPolicy{DaysByRole: map[domain.Role]int{domain.RoleEstudiante: -1}}
		req := testutil.NewJSONRequest(t, http.MethodPut, "/admin/prestamos/config", bad)
		req.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "validation_error")
	})
}

func TestOverdueFlagThroughAPI(t *testing.T) {
	env := newTestEnv(t)
	env.createLoan(t)

	// A loan whose due date already passed; the listing derives vencido
	// from the request clock set by middleware.
	past := time.Now().AddDate(0, 0, -10)
	overdueLoan, err := models.NewLoan(
		domain.LoanID(uuid.New()),
		env.book.ID,
		env.student.ID,
		past,
		past.AddDate(0, 0, 7),
	)
	require.NoError(t, err)
	require.NoError(t, env.loans.Create(t.Context(), overdueLoan))

	req := testutil.NewRequest(t, http.MethodGet, "/admin/prestamos?estado=vencido")
	req.Header.Set("Authorization", "Bearer "+staffToken)
	rr := testutil.DoRequest(env.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	views := *testutil.UnmarshalResponse[[]models.LoanView](t, rr)
	require.Len(t, views, 1, "only the past-due loan matches vencido")
	assert.Equal(t, overdueLoan.ID, views[0].ID)
	assert.True(t, views[0].Overdue)
	assert.Equal(t, models.LoanStatusCheckedOut, views[0].Status)
}
