package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapcard-api/internal/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrBadFormat, http.StatusBadRequest},
		{fmt.Errorf("count: %w", domain.ErrBadRequest), http.StatusBadRequest},
		{domain.ErrNotClaimable, http.StatusNotFound},
		{fmt.Errorf("claim intent not found: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrAlreadyClaimed, http.StatusConflict},
		{fmt.Errorf("email already registered: %w", domain.ErrConflict), http.StatusConflict},
		{fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized), http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrGenerationExhausted, http.StatusInternalServerError},
		{errors.New("dynamo timeout"), 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

func TestWriteServiceError_HidesInfrastructureErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	writeServiceError(rr, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("ResourceNotFoundException: table users"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var env MessageEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "internal server error", env.Error)
	assert.Equal(t, http.StatusInternalServerError, env.ErrorCode)
}
