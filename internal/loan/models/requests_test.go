package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "libris/pkg/domain-errors"
)

func TestApplyPenaltyRequestValidate(t *testing.T) {
	t.Run("nil request is a bad request", func(t *testing.T) {
		var r *ApplyPenaltyRequest
		err := r.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("valid request", func(t *testing.T) {
		r := &ApplyPenaltyRequest{Days: 5, Reason: "  libro dañado  "}
		r.Normalize()
		require.NoError(t, r.Validate())
		assert.Equal(t, "libro dañado", r.Reason)
	})

	t.Run("oversized reason fails before required checks", func(t *testing.T) {
		r := &ApplyPenaltyRequest{Days: 0, Reason: strings.Repeat("a", 501)}
		err := r.Validate()
		require.Error(t, err)
		assert.Contains(t, dErrors.MessageOf(err), "500")
	})

	t.Run("missing reason", func(t *testing.T) {
		r := &ApplyPenaltyRequest{Days: 5}
		r.Normalize()
		err := r.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("non-positive days", func(t *testing.T) {
		for _, days := range []int{0, -2} {
			r := &ApplyPenaltyRequest{Days: days, Reason: "retraso"}
			require.Error(t, r.Validate())
		}
	})
}

func TestCreateLoanRequestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r := &CreateLoanRequest{BookID: " b1 ", UserID: " u1 "}
		r.Normalize()
		require.NoError(t, r.Validate())
		assert.Equal(t, "b1", r.BookID)
	})

	t.Run("missing fields", func(t *testing.T) {
		require.Error(t, (&CreateLoanRequest{UserID: "u1"}).Validate())
		require.Error(t, (&CreateLoanRequest{BookID: "b1"}).Validate())
	})
}

func TestListFilter(t *testing.T) {
	t.Run("normalizes estado to lowercase", func(t *testing.T) {
		f := &ListFilter{Estado: " Vencido ", Query: "  garcía "}
		f.Normalize()
		assert.Equal(t, FilterEstadoVencido, f.Estado)
		assert.Equal(t, "garcía", f.Query)
	})

	t.Run("accepts stored statuses and synthetic values", func(t *testing.T) {
		for _, estado := range []string{"", "all", "vencido", "prestado", "devuelto", "retrasado"} {
			f := &ListFilter{Estado: estado}
			require.NoError(t, f.Validate(), estado)
		}
	})

	t.Run("rejects unknown estado", func(t *testing.T) {
		f := &ListFilter{Estado: "perdido"}
		err := f.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
