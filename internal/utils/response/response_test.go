package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qapabilities/students-api/internal/result"
	"github.com/qapabilities/students-api/internal/validation"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind result.Kind
		want int
	}{
		{result.KindNotFound, http.StatusNotFound},
		{result.KindConflict, http.StatusConflict},
		{result.KindIneligible, http.StatusUnprocessableEntity},
		{result.KindInvalid, http.StatusBadRequest},
		{result.KindNone, http.StatusInternalServerError},
		{result.Kind(99), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.kind))
		})
	}
}

func TestWriteResult(t *testing.T) {
	t.Run("success uses the given status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, WriteResult(rec, http.StatusCreated, result.Ok("x", "created")))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"success":true,"message":"created","data":"x"}`, rec.Body.String())
	})

	t.Run("failure uses the kind status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, WriteResult(rec, http.StatusOK, result.Fail[bool](result.KindConflict, "email already in use")))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"success":false,"message":"email already in use","data":false}`, rec.Body.String())
	})
}

func TestGeneralError(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusInternalServerError, GeneralError(errors.New("db down"))))

	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "db down", body.Message)
	assert.Empty(t, body.Errors)
}

func TestValidationError(t *testing.T) {
	got := ValidationError([]validation.Violation{
		{Field: "name", Message: "is required"},
		{Field: "cpf", Message: "is not a valid CPF"},
	})

	assert.False(t, got.Success)
	assert.Equal(t, MsgValidationFailed, got.Message)
	assert.Equal(t, []string{"name: is required", "cpf: is not a valid CPF"}, got.Errors)
}
