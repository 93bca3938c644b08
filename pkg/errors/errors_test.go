package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{NotFound("patient"), http.StatusNotFound},
		{Unauthenticated("bad credentials"), http.StatusUnauthorized},
		{Expired("session expired"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{Conflict("duplicate"), http.StatusConflict},
		{Adapter("upstream", nil), http.StatusBadGateway},
		{Storage(fmt.Errorf("disk")), http.StatusInternalServerError},
		{Internal(fmt.Errorf("unexpected")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.StatusCode(), tc.err.Message)
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrNotFound, CodeOf(NotFound("patient")))
	assert.Equal(t, ErrValidation, CodeOf(fmt.Errorf("wrapped: %w", Validation("bad"))))
	assert.Equal(t, ErrInternal, CodeOf(fmt.Errorf("plain")))
}

func TestUnwrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Storage(inner)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "connection refused")
}
