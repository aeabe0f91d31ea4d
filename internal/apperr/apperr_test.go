package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfAndStatus(t *testing.T) {
	cases := []struct {
		err    error
		kind   Kind
		status int
	}{
		{Validation("name is required"), KindValidation, http.StatusBadRequest},
		{Unauthorized("no token"), KindUnauthorized, http.StatusUnauthorized},
		{Forbidden("Access denied"), KindForbidden, http.StatusForbidden},
		{NotFound("Watchlist not found"), KindNotFound, http.StatusNotFound},
		{Conflict("User is already a member"), KindConflict, http.StatusConflict},
		{Internal("mongo insert", errors.New("boom")), KindInternal, http.StatusInternalServerError},
		{errors.New("plain"), KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, KindOf(tc.err), tc.err.Error())
		assert.Equal(t, tc.status, Status(KindOf(tc.err)), tc.err.Error())
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("add member: %w", Conflict("User is already a member"))
	assert.True(t, Is(err, KindConflict))
	assert.Equal(t, "User is already a member", Message(err))
}

func TestInternalHidesDetail(t *testing.T) {
	cause := errors.New("connection refused 10.0.0.4:27017")
	err := Internal("find list", cause)

	assert.Equal(t, "Server Error", Message(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "find list")
}
